package handler

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/dojoverse/dojo/internal/session"
)

// Routes builds the full API router. Mutating routes require a session;
// reads are public.
func Routes(auth *AuthHandler, events *EventHandler, feed *FeedHandler, sessions *session.Manager, log zerolog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(AccessLog(log))
	r.Use(CORS())

	r.Get("/health", HealthCheck)

	r.Post("/login", auth.LogIn)
	r.Post("/logout", auth.LogOut)
	r.With(sessions.RequireUser).Get("/session", auth.WhoAmI)

	r.Route("/events", func(r chi.Router) {
		r.Get("/", events.ListEvents)
		r.Post("/sweep", events.Sweep)
		r.Get("/{id}", events.GetEvent)
		r.Get("/{id}/roster", events.Roster)

		r.Group(func(r chi.Router) {
			r.Use(sessions.RequireUser)
			r.Post("/", events.CreateEvent)
			r.Get("/attending", events.ListAttending)
			r.Patch("/{id}", events.UpdateEvent)
			r.Delete("/{id}", events.DeleteEvent)
			r.Post("/{id}/cancel", events.CancelEvent)
			r.Post("/{id}/register", events.Register)
			r.Post("/{id}/unregister", events.Unregister)
			r.Get("/{id}/registered", events.IsRegistered)
		})
	})

	r.Route("/posts", func(r chi.Router) {
		r.Get("/", feed.ListPosts)
		r.Get("/{id}", feed.GetPost)

		r.Group(func(r chi.Router) {
			r.Use(sessions.RequireUser)
			r.Post("/", feed.CreatePost)
			r.Patch("/{id}", feed.UpdatePost)
			r.Delete("/{id}", feed.DeletePost)
			r.Post("/{id}/comments", feed.CreateComment)
			r.Post("/{id}/techniques", feed.CreateTag)
		})
	})

	r.Route("/comments", func(r chi.Router) {
		r.Get("/", feed.ListComments)
		r.Get("/{id}", feed.GetComment)

		r.Group(func(r chi.Router) {
			r.Use(sessions.RequireUser)
			r.Patch("/{id}", feed.UpdateComment)
			r.Delete("/{id}", feed.DeleteComment)
		})
	})

	r.Route("/techniques", func(r chi.Router) {
		r.Get("/", feed.ListTags)
		r.With(sessions.RequireUser).Delete("/{id}", feed.DeleteTag)
	})

	return r
}
