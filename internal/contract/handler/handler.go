package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"medshare/internal/asset"
	"medshare/internal/contract"
	"medshare/internal/identity"
	dErrors "medshare/pkg/domain-errors"
	"medshare/pkg/platform/httputil"
	"medshare/pkg/requestcontext"
)

// Service defines the interface for asset contract operations.
type Service interface {
	CreateAsset(ctx context.Context, caller identity.Identity, in contract.CreateAssetInput) (asset.Asset, error)
	ReadAsset(ctx context.Context, caller identity.Identity, assetID string) (string, error)
	ReadAcl(ctx context.Context, caller identity.Identity, assetID string) ([]string, error)
	UpdateACLPermission(ctx context.Context, caller identity.Identity, assetID, newOrg string) error
	RevokeACLPermission(ctx context.Context, caller identity.Identity, assetID, targetOrg string) error
	DeleteAsset(ctx context.Context, caller identity.Identity, assetID string) error
	PurgeAsset(ctx context.Context, caller identity.Identity, assetID string) error
	RequestPermission(ctx context.Context, caller identity.Identity, assetID, purpose string) error
	EraseData(ctx context.Context, caller identity.Identity, assetID string) (string, error)
	QueryAssetsBySubject(ctx context.Context, dataSubject string) (string, error)
	AssetsByRange(ctx context.Context, startID, endID string) ([]asset.Asset, error)
	UploadKey(ctx context.Context, caller identity.Identity, key, keyType string) error
	HistoryForAsset(ctx context.Context, key string) (string, error)
}

// Handler wires asset endpoints to the contract service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an asset handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts asset endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/assets", h.HandleCreate)
	r.Get("/assets", h.HandleRange)
	r.Get("/assets/{assetID}", h.HandleRead)
	r.Delete("/assets/{assetID}", h.HandleDelete)
	r.Post("/assets/{assetID}/purge", h.HandlePurge)
	r.Get("/assets/{assetID}/acl", h.HandleReadACL)
	r.Post("/assets/{assetID}/acl", h.HandleGrant)
	r.Delete("/assets/{assetID}/acl/{org}", h.HandleRevoke)
	r.Post("/assets/{assetID}/requests", h.HandleRequestAccess)
	r.Post("/assets/{assetID}/erasure", h.HandleErase)
	r.Get("/subjects/{dataSubject}/assets", h.HandleQueryBySubject)
	r.Post("/keys", h.HandleUploadKey)
	r.Get("/history/{key}", h.HandleHistory)
}

// caller pulls the verified identity the auth middleware stored. A missing
// identity means the route was mounted outside the authenticated group.
func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (identity.Identity, bool) {
	caller, ok := requestcontext.Caller(r.Context())
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return identity.Identity{}, false
	}
	return caller, true
}

// HandleCreate handles POST /assets requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeJSON[CreateAssetRequest](w, r)
	if !ok {
		return
	}

	start := time.Now()
	created, err := h.service.CreateAsset(ctx, caller, req.ToInput())
	if err != nil {
		h.logger.ErrorContext(ctx, "create asset failed",
			"request_id", requestcontext.RequestID(ctx),
			"asset_id", req.AssetID,
			"org", caller.MSPID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "asset created",
		"request_id", requestcontext.RequestID(ctx),
		"asset_id", created.AssetID,
		"org", caller.MSPID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromAsset(created))
}

// HandleRead handles GET /assets/{assetID} requests.
func (h *Handler) HandleRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	assetID := chi.URLParam(r, "assetID")

	record, err := h.service.ReadAsset(ctx, caller, assetID)
	if err != nil {
		h.logger.WarnContext(ctx, "read asset failed",
			"request_id", requestcontext.RequestID(ctx),
			"asset_id", assetID,
			"org", caller.MSPID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, RecordResponse{Record: record})
}

// HandleReadACL handles GET /assets/{assetID}/acl requests.
func (h *Handler) HandleReadACL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	assetID := chi.URLParam(r, "assetID")

	acl, err := h.service.ReadAcl(ctx, caller, assetID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ACLResponse{AssetID: assetID, ACL: acl})
}

// HandleGrant handles POST /assets/{assetID}/acl requests.
func (h *Handler) HandleGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	assetID := chi.URLParam(r, "assetID")
	req, ok := httputil.DecodeJSON[GrantRequest](w, r)
	if !ok {
		return
	}
	if req.Org == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeIncompleteInput, "empty input: org"))
		return
	}

	if err := h.service.UpdateACLPermission(ctx, caller, assetID, req.Org); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "acl grant",
		"request_id", requestcontext.RequestID(ctx),
		"asset_id", assetID,
		"granted_org", req.Org,
		"org", caller.MSPID,
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleRevoke handles DELETE /assets/{assetID}/acl/{org} requests.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	assetID := chi.URLParam(r, "assetID")
	org := chi.URLParam(r, "org")

	if err := h.service.RevokeACLPermission(ctx, caller, assetID, org); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "acl revoke",
		"request_id", requestcontext.RequestID(ctx),
		"asset_id", assetID,
		"revoked_org", org,
		"org", caller.MSPID,
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleDelete handles DELETE /assets/{assetID} requests.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	assetID := chi.URLParam(r, "assetID")

	if err := h.service.DeleteAsset(ctx, caller, assetID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "asset deleted",
		"request_id", requestcontext.RequestID(ctx),
		"asset_id", assetID,
		"org", caller.MSPID,
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandlePurge handles POST /assets/{assetID}/purge requests.
func (h *Handler) HandlePurge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	assetID := chi.URLParam(r, "assetID")

	if err := h.service.PurgeAsset(ctx, caller, assetID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "asset purged",
		"request_id", requestcontext.RequestID(ctx),
		"asset_id", assetID,
		"org", caller.MSPID,
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleRequestAccess handles POST /assets/{assetID}/requests requests.
func (h *Handler) HandleRequestAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	assetID := chi.URLParam(r, "assetID")
	req, ok := httputil.DecodeJSON[RequestAccessRequest](w, r)
	if !ok {
		return
	}

	if err := h.service.RequestPermission(ctx, caller, assetID, req.Purpose); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// HandleErase handles POST /assets/{assetID}/erasure requests.
func (h *Handler) HandleErase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	assetID := chi.URLParam(r, "assetID")

	receipt, err := h.service.EraseData(ctx, caller, assetID)
	if err != nil {
		h.logger.WarnContext(ctx, "erasure failed",
			"request_id", requestcontext.RequestID(ctx),
			"asset_id", assetID,
			"org", caller.MSPID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "data erased",
		"request_id", requestcontext.RequestID(ctx),
		"asset_id", assetID,
		"org", caller.MSPID,
	)
	httputil.WriteJSON(w, http.StatusOK, ReceiptResponse{AssetID: assetID, ReadHistory: receipt})
}

// HandleQueryBySubject handles GET /subjects/{dataSubject}/assets requests.
func (h *Handler) HandleQueryBySubject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.caller(w, r); !ok {
		return
	}
	dataSubject := chi.URLParam(r, "dataSubject")

	results, err := h.service.QueryAssetsBySubject(ctx, dataSubject)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, SubjectQueryResponse{DataSubject: dataSubject, Assets: results})
}

// HandleRange handles GET /assets?start=&end= requests.
func (h *Handler) HandleRange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.caller(w, r); !ok {
		return
	}
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")

	assets, err := h.service.AssetsByRange(ctx, start, end)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAssets(assets))
}

// HandleUploadKey handles POST /keys requests.
func (h *Handler) HandleUploadKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeJSON[UploadKeyRequest](w, r)
	if !ok {
		return
	}

	if err := h.service.UploadKey(ctx, caller, req.Key, req.KeyType); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleHistory handles GET /history/{key} requests.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.caller(w, r); !ok {
		return
	}
	key := chi.URLParam(r, "key")

	history, err := h.service.HistoryForAsset(ctx, key)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, HistoryResponse{Key: key, History: history})
}
