package ai

import (
	"context"

	"github.com/kayz/dogcmd/internal/intent"
)

// Rules classifies with the local rule-based template builder. It never
// fails and needs no network.
type Rules struct {
	name    string
	builder *intent.Builder
}

func NewRules(name string, actions *intent.ActionSet) *Rules {
	if name == "" {
		name = TypeRules
	}
	return &Rules{name: name, builder: intent.NewBuilder(actions, intent.PolicyDrop)}
}

func (r *Rules) Name() string { return r.name }

func (r *Rules) Classify(_ context.Context, key string) (intent.Template, error) {
	return r.builder.Build(key).Template, nil
}
