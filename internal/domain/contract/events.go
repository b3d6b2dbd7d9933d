package contract

import (
	"github.com/clauselens/clauselens/pkg/types/common"
)

// Kafka topics carrying contract lifecycle events.
const (
	TopicContractUploaded = "contract.uploaded"
	TopicContractAnalyzed = "contract.analyzed"
	TopicContractFailed   = "contract.failed"
)

// ContractUploadedEvent is emitted when a new contract enters the pipeline.
type ContractUploadedEvent struct {
	common.BaseEvent
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
	ObjectKey string `json:"object_key,omitempty"`
}

func NewContractUploadedEvent(c *Contract) *ContractUploadedEvent {
	return &ContractUploadedEvent{
		BaseEvent: common.NewBaseEvent(c.ID.String()),
		Filename:  c.Filename,
		SizeBytes: int64(len(c.RawText)),
		ObjectKey: c.ObjectKey,
	}
}

// ContractAnalyzedEvent is emitted when structuring and risk assessment
// complete successfully.
type ContractAnalyzedEvent struct {
	common.BaseEvent
	Filename     string    `json:"filename"`
	SectionCount int       `json:"section_count"`
	ClauseCount  int       `json:"clause_count"`
	RiskLevel    RiskLevel `json:"risk_level"`
	RiskScore    float64   `json:"risk_score"`
}

func NewContractAnalyzedEvent(c *Contract) *ContractAnalyzedEvent {
	ev := &ContractAnalyzedEvent{
		BaseEvent: common.NewBaseEvent(c.ID.String()),
		Filename:  c.Filename,
	}
	if c.Structured != nil {
		ev.SectionCount = len(c.Structured.Sections)
		ev.ClauseCount = len(c.Structured.Clauses)
	}
	if c.Risk != nil {
		ev.RiskLevel = c.Risk.Level
		ev.RiskScore = c.Risk.Score
	}
	return ev
}

// ContractFailedEvent is emitted when analysis fails terminally.
type ContractFailedEvent struct {
	common.BaseEvent
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

func NewContractFailedEvent(c *Contract, reason string) *ContractFailedEvent {
	return &ContractFailedEvent{
		BaseEvent: common.NewBaseEvent(c.ID.String()),
		Filename:  c.Filename,
		Reason:    reason,
	}
}
