package api

import (
	"net/http"

	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/google/uuid"
)

// RequireAdmin allows only tokens carrying the admin role. It runs after
// jwtauth.Verifier has parsed the token into the request context.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"message": "authentication required"})
			return
		}
		if role, _ := claims["role"].(string); role != "admin" {
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, map[string]string{"message": "admin access required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ownerID extracts the authenticated principal's id from the verified
// token. uuid.Nil when the request is unauthenticated or the claim is
// absent; the lifecycle service treats that as "no owner".
func ownerID(r *http.Request) uuid.UUID {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return uuid.Nil
	}
	sub, _ := claims["sub"].(string)
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil
	}
	return id
}
