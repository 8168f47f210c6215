package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"medshare/internal/audit"
	"medshare/internal/contract"
	"medshare/internal/identity"
	"medshare/internal/ledger"
	auth "medshare/pkg/platform/middleware/auth"
	request "medshare/pkg/platform/middleware/request"
)

const signingKey = "test-signing-key"

func newAssetRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	led := ledger.NewInMemory()
	recorder := audit.NewRecorder(led, logger)
	svc, err := contract.NewService(led, recorder, contract.Config{
		CollectionName: "medCollection",
		PeerMSPID:      "Org1MSP",
	}, logger)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	r := chi.NewRouter()
	r.Use(request.ID)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireIdentity(identity.NewTokenValidator(signingKey), logger))
		New(svc, logger).Register(r)
	})
	return r
}

func bearerFor(t *testing.T, mspID, role, dn string) string {
	t.Helper()
	token, err := identity.IssueToken(signingKey, mspID, role, dn)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return "Bearer " + token
}

func doJSON(t *testing.T, router http.Handler, method, path, authHeader string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createPayload(assetID string) map[string]any {
	return map[string]any{
		"assetID":     assetID,
		"pointer":     "ipfs://QmPointer",
		"dataSubject": "alice",
		"version":     1,
		"filekey":     "key-ref-1",
		"acl":         []string{"Org1MSP"},
	}
}

func TestAuthRequired(t *testing.T) {
	router := newAssetRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/assets/asset1", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/assets/asset1", "Bearer not-a-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with a bad token, got %d", rec.Code)
	}
}

func TestCreateAndReadViaHandlers(t *testing.T) {
	router := newAssetRouter(t)
	doctor := bearerFor(t, "Org1MSP", "doctor", "x509::CN=doctor1,OU=client::CN=ca.org1.example.com,O=org1.example.com,C=US")

	rec := doJSON(t, router, http.MethodPost, "/assets", doctor, createPayload("asset1"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating asset, got %d: %s", rec.Code, rec.Body.String())
	}

	var created AssetResponse
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.AssetID != "asset1" {
		t.Fatalf("expected assetID asset1, got %q", created.AssetID)
	}

	rec = doJSON(t, router, http.MethodGet, "/assets/asset1", doctor, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 reading asset, got %d", rec.Code)
	}
	var read RecordResponse
	if err := json.NewDecoder(rec.Body).Decode(&read); err != nil {
		t.Fatalf("decode read response: %v", err)
	}
	if read.Record == "" {
		t.Fatalf("expected a formatted record line")
	}

	rec = doJSON(t, router, http.MethodPost, "/assets", doctor, createPayload("asset1"))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate create, got %d", rec.Code)
	}
}

func TestDenialsMapToForbidden(t *testing.T) {
	router := newAssetRouter(t)
	doctor := bearerFor(t, "Org1MSP", "doctor", "x509::CN=doctor1,OU=client::CN=ca.org1.example.com,O=org1.example.com,C=US")
	outsider := bearerFor(t, "Org2MSP", "doctor", "x509::CN=doctor2,OU=client::CN=ca.org2.example.com,O=org2.example.com,C=US")

	rec := doJSON(t, router, http.MethodPost, "/assets", doctor, createPayload("asset1"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating asset, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/assets/asset1", outsider, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for an org outside the ACL, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/assets/missing", doctor, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown asset, got %d", rec.Code)
	}
}

func TestACLGrantRevokeViaHandlers(t *testing.T) {
	router := newAssetRouter(t)
	doctor := bearerFor(t, "Org1MSP", "doctor", "x509::CN=doctor1,OU=client::CN=ca.org1.example.com,O=org1.example.com,C=US")
	outsider := bearerFor(t, "Org2MSP", "doctor", "x509::CN=doctor2,OU=client::CN=ca.org2.example.com,O=org2.example.com,C=US")

	rec := doJSON(t, router, http.MethodPost, "/assets", doctor, createPayload("asset1"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating asset, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/assets/asset1/acl", doctor, map[string]string{"org": "Org2MSP"})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 granting access, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/assets/asset1", outsider, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after grant, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodDelete, "/assets/asset1/acl/Org2MSP", doctor, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 revoking access, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/assets/asset1", outsider, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 after revoke, got %d", rec.Code)
	}
}

func TestErasureViaHandlers(t *testing.T) {
	router := newAssetRouter(t)
	doctor := bearerFor(t, "Org1MSP", "doctor", "x509::CN=doctor1,OU=client::CN=ca.org1.example.com,O=org1.example.com,C=US")

	rec := doJSON(t, router, http.MethodPost, "/assets", doctor, createPayload("asset1"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating asset, got %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodGet, "/assets/asset1", doctor, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 reading asset, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/assets/asset1/erasure", doctor, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 erasing data, got %d: %s", rec.Code, rec.Body.String())
	}
	var receipt ReceiptResponse
	if err := json.NewDecoder(rec.Body).Decode(&receipt); err != nil {
		t.Fatalf("decode receipt: %v", err)
	}
	if receipt.ReadHistory == "" {
		t.Fatalf("expected the read history receipt to list the prior read")
	}

	rec = doJSON(t, router, http.MethodGet, "/assets/asset1", doctor, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after erasure, got %d", rec.Code)
	}
}

func TestSubjectQueryAndRangeViaHandlers(t *testing.T) {
	router := newAssetRouter(t)
	doctor := bearerFor(t, "Org1MSP", "doctor", "x509::CN=doctor1,OU=client::CN=ca.org1.example.com,O=org1.example.com,C=US")

	for _, id := range []string{"asset1", "asset2"} {
		rec := doJSON(t, router, http.MethodPost, "/assets", doctor, createPayload(id))
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201 creating %s, got %d", id, rec.Code)
		}
	}

	rec := doJSON(t, router, http.MethodGet, "/subjects/alice/assets", doctor, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 querying by subject, got %d", rec.Code)
	}
	var q SubjectQueryResponse
	if err := json.NewDecoder(rec.Body).Decode(&q); err != nil {
		t.Fatalf("decode query response: %v", err)
	}
	if q.Assets != "asset1-Org1MSP,asset2-Org1MSP" {
		t.Fatalf("unexpected subject query projection: %q", q.Assets)
	}

	rec = doJSON(t, router, http.MethodGet, "/assets?start=asset1&end=asset2", doctor, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on range scan, got %d", rec.Code)
	}
	var assets []AssetResponse
	if err := json.NewDecoder(rec.Body).Decode(&assets); err != nil {
		t.Fatalf("decode range response: %v", err)
	}
	if len(assets) != 1 || assets[0].AssetID != "asset1" {
		t.Fatalf("unexpected range result: %+v", assets)
	}
}

func TestUploadKeyAndHistoryViaHandlers(t *testing.T) {
	router := newAssetRouter(t)
	doctor := bearerFor(t, "Org1MSP", "doctor", "x509::CN=doctor1,OU=client::CN=ca.org1.example.com,O=org1.example.com,C=US")

	rec := doJSON(t, router, http.MethodPost, "/keys", doctor, map[string]string{"key": "pk-v1", "keyType": "public"})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 uploading key, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/history/Org1MSP_public", doctor, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 reading history, got %d", rec.Code)
	}
	var hist HistoryResponse
	if err := json.NewDecoder(rec.Body).Decode(&hist); err != nil {
		t.Fatalf("decode history response: %v", err)
	}
	if hist.History != "pk-v1" {
		t.Fatalf("unexpected history: %q", hist.History)
	}
}
