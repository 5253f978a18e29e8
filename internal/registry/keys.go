package registry

import (
	"github.com/nfrund/durian/internal/domain"
	"github.com/nfrund/durian/internal/forms"
	"github.com/nfrund/durian/internal/pubsub"
	"github.com/nfrund/durian/internal/rendering"
	"github.com/nfrund/durian/internal/session"
)

// Core services the server registers before modules boot.
var (
	GatewayKey    = Key[domain.AuthGateway]("auth.gateway")
	SessionsKey   = Key[*session.Provider]("auth.sessions")
	ViewsKey      = Key[*forms.Views]("forms.views")
	RendererKey   = Key[rendering.Renderer]("core.renderer")
	PublisherKey  = Key[pubsub.Publisher]("core.publisher")
	SubscriberKey = Key[pubsub.Subscriber]("core.subscriber")
)
