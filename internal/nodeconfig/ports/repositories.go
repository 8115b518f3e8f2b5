package ports

import (
	"github.com/nodeflow-go/internal/domain/node"
	"github.com/nodeflow-go/internal/domain/provider"
	"github.com/nodeflow-go/internal/domain/workflow"
	"github.com/nodeflow-go/pkg/repository"
)

type NodeRepository = repository.Repository[workflow.Node]

type ProviderRepository = repository.Repository[provider.LLMProvider]

type InputNodeRepository = repository.Repository[node.InputNode]

type LLMNodeRepository = repository.Repository[node.LLMNode]

type OutputNodeRepository = repository.Repository[node.OutputNode]
