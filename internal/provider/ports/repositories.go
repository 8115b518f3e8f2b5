package ports

import (
	"github.com/nodeflow-go/internal/domain/node"
	"github.com/nodeflow-go/internal/domain/provider"
	"github.com/nodeflow-go/internal/domain/user"
	"github.com/nodeflow-go/pkg/repository"
)

type UserRepository = repository.Repository[user.User]

type ProviderRepository = repository.Repository[provider.LLMProvider]

type LLMNodeRepository = repository.Repository[node.LLMNode]

// Cipher seals provider API keys at rest.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}
