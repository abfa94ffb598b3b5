// Internal ops API: a read-only view of the upload catalog for operator
// tooling and dashboards. Serves the durable catalog only; run the public
// server with CATALOG_BACKEND=postgres for the two to share records.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/eduscale/backend-go/internal/config"
	"github.com/eduscale/backend-go/internal/repository"
	"github.com/eduscale/backend-go/internal/repository/postgres"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file if it exists
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Initialize Database
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	catalog, err := postgres.NewUploadCatalog(context.Background(), db)
	if err != nil {
		log.Fatalf("Failed to initialize upload catalog: %v", err)
	}

	// Create router
	r := mux.NewRouter()

	// Register routes
	r.HandleFunc("/internal/uploads", listUploadsHandler(catalog)).Methods("GET")
	r.HandleFunc("/internal/uploads/{id}", getUploadHandler(catalog)).Methods("GET")

	// Health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// Start server
	port := os.Getenv("OPS_PORT")
	if port == "" {
		port = "8081"
	}
	addr := fmt.Sprintf(":%s", port)
	log.Printf("Ops server starting on %s\n", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}

func listUploadsHandler(catalog repository.UploadCatalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := catalog.ListAll(r.Context())
		if err != nil {
			http.Error(w, "failed to list uploads", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"uploads": records,
			"count":   len(records),
		})
	}
}

func getUploadHandler(catalog repository.UploadCatalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fileID := mux.Vars(r)["id"]
		record, err := catalog.Get(r.Context(), fileID)
		if err != nil {
			if errors.Is(err, repository.ErrUploadNotFound) {
				http.Error(w, "upload not found", http.StatusNotFound)
				return
			}
			http.Error(w, "failed to fetch upload", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, record)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}
