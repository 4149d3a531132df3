package task

import (
	"github.com/randalmurphal/llmkit/model"
)

// Type identifies which step of the fix workflow a model call serves.
type Type string

const (
	// Heavy reasoning
	Generate Type = "generate"

	// Standard tier
	Analyze Type = "analyze"
	Review  Type = "review"

	// Fast classification work
	DetectStack Type = "detect_stack"
	Queries     Type = "queries"
	Summarize   Type = "summarize"
)

// DefaultModelMap maps task types to default models.
var DefaultModelMap = map[Type]model.ModelName{
	Generate:    model.ModelOpus,
	Analyze:     model.ModelSonnet,
	Review:      model.ModelSonnet,
	DetectStack: model.ModelHaiku,
	Queries:     model.ModelHaiku,
	Summarize:   model.ModelHaiku,
}

// TierForTask returns the appropriate tier for a task type.
func TierForTask(t Type) model.Tier {
	switch t {
	case Generate:
		return model.TierThinking
	case DetectStack, Queries, Summarize:
		return model.TierFast
	default:
		return model.TierDefault
	}
}

// NewSelector creates a model selector configured for fix workflow tasks.
func NewSelector(opts ...model.SelectorOption) *model.Selector {
	allOpts := append([]model.SelectorOption{
		model.WithTierFunc(func(task any) model.Tier {
			if t, ok := task.(Type); ok {
				return TierForTask(t)
			}
			return model.TierDefault
		}),
	}, opts...)

	return model.NewSelector(allOpts...)
}

// SelectModel selects the appropriate model for a task type.
func SelectModel(t Type) model.ModelName {
	if m, ok := DefaultModelMap[t]; ok {
		return m
	}
	switch TierForTask(t) {
	case model.TierThinking:
		return model.ModelOpus
	case model.TierFast:
		return model.ModelHaiku
	default:
		return model.ModelSonnet
	}
}
