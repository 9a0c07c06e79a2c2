// Package httpapi wires the relay's two HTTP surfaces (§6): the websocket
// upgrade at "/" and the internal sibling-broadcast endpoint at
// "/do-broadcast". No other HTTP surface is in scope for this core.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"meshrelay.dev/pkg/app/instance"
	"meshrelay.dev/pkg/protocol/socketapi"
	"meshrelay.dev/pkg/utils/context"
)

// NewRouter builds the instance's HTTP surface.
func NewRouter(ctx context.T, inst *instance.Instance) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{AllowedOrigins: []string{"*"}}).Handler)

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		socketapi.Serve(ctx, inst, w, req)
	})
	r.Post("/do-broadcast", BroadcastHandler(inst))
	return r
}
