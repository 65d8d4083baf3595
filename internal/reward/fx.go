package reward

import (
	"go.uber.org/fx"
)

var Module = fx.Module("reward",
	fx.Provide(NewSessionRegistry),
	fx.Provide(func(r *SessionRegistry) Presence { return r }),
	fx.Provide(NewDispatcher),
)
