package provider

import (
	"github.com/nodeflow-go/internal/domain/user"
)

type ProviderType string

const ProviderTypeOllama ProviderType = "ollama"

func (t ProviderType) Valid() bool {
	return t == ProviderTypeOllama
}

// LLMProvider is a user owned language model backend. APIKey holds the
// encrypted key and is never serialised.
type LLMProvider struct {
	ID        int64        `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID    int64        `json:"user_id" gorm:"not null;index"`
	User      *user.User   `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Name      string       `json:"name" gorm:"size:128;not null"`
	Type      ProviderType `json:"type" gorm:"size:16;not null"`
	APIKey    string       `json:"-" gorm:"type:text;not null"`
	BaseURL   *string      `json:"base_url" gorm:"size:512"`
	IsDefault bool         `json:"is_default" gorm:"not null"`
}

func (LLMProvider) TableName() string { return "llm_providers" }
