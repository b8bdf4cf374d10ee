package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
)

func TestEndpointLabelUsesRouteTemplate(t *testing.T) {
	t.Parallel()

	var labels []string
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/marketplace/listings/{id}/buy", func(w http.ResponseWriter, req *http.Request) {
		labels = append(labels, endpoint(req))
	}).Methods("POST")
	r.HandleFunc("/api/v1/shop", func(w http.ResponseWriter, req *http.Request) {
		labels = append(labels, endpoint(req))
	}).Methods("GET")

	req := httptest.NewRequest("POST", "/api/v1/marketplace/listings/global_user_abc_17000_dead/buy", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest("GET", "/api/v1/shop", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	// Listing ids collapse into the template; the label set stays bounded.
	assert.Equal(t, []string{"/api/v1/marketplace/listings/{id}/buy", "/api/v1/shop"}, labels)
}

func TestEndpointLabelOutsideRouter(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("GET", "/health", nil)
	assert.Equal(t, "/health", endpoint(req))
}
