//go:build integration

package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"clinicq/pkg/auth"
	"clinicq/pkg/client"
)

type TestEnv struct {
	MongoURI     string
	DatabaseName string
	ServerURL    string
	JWTSecret    string
	JWTIssuer    string
}

func NewTestEnv() *TestEnv {
	serverPort := getEnv("TEST_SERVER_PORT", "8080")
	return &TestEnv{
		MongoURI:     getEnv("TEST_MONGO_URI", DefaultMongoURI),
		DatabaseName: getEnv("TEST_DB_NAME", DefaultDatabaseName),
		ServerURL:    getEnv("TEST_SERVER_URL", fmt.Sprintf("http://localhost:%s", serverPort)),
		JWTSecret:    os.Getenv("TEST_JWT_SECRET"),
		JWTIssuer:    getEnv("TEST_JWT_ISSUER", "clinicq"),
	}
}

// Setup connects to Mongo and waits for the server to report healthy.
func (e *TestEnv) Setup(t *testing.T) (*MongoHelper, *client.SlotsClient) {
	t.Helper()

	mongo := NewMongoHelper(t, e.MongoURI, e.DatabaseName)

	ctx, cancel := context.WithTimeout(context.Background(), DefaultHealthCheckTimeout)
	defer cancel()
	if err := client.NewHttpClient(e.ServerURL).WaitForHealthy(ctx, DefaultHealthCheckTimeout); err != nil {
		t.Fatalf("server at %s is not healthy: %v", e.ServerURL, err)
	}

	return mongo, client.NewSlotsClient(e.ServerURL)
}

// AdminClient returns an HTTP client carrying a freshly signed admin token.
func (e *TestEnv) AdminClient(t *testing.T) *client.HttpClient {
	t.Helper()
	if e.JWTSecret == "" {
		t.Skip("TEST_JWT_SECRET is not set")
	}
	token, err := auth.NewJWTAuthorizer(e.JWTSecret, e.JWTIssuer).IssueToken("integration-tests", []string{auth.RoleAdmin}, time.Hour)
	if err != nil {
		t.Fatalf("failed to issue admin token: %v", err)
	}
	return client.NewHttpClient(e.ServerURL).WithBearerToken(token)
}

func (e *TestEnv) Cleanup(t *testing.T, mongo *MongoHelper, hospitalID string) {
	t.Helper()

	if mongo != nil {
		mongo.DeleteHospital(t, hospitalID)
		mongo.Close(t)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

const (
	DefaultHealthCheckTimeout = 30 * time.Second
)
