// Package httpapi wires the HTTP surface of spec §6 onto the orchestrator
// (component D) and read path (component E): request decoding, validator-tag
// schema checks, group-based authorization, and envelope responses.
package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	apperrors "github.com/chainsafe/whitelist-merkle-service/pkg/app/errors"
	apphttp "github.com/chainsafe/whitelist-merkle-service/pkg/app/http"
	"github.com/chainsafe/whitelist-merkle-service/pkg/whitelist"
)

const maxRequestBody = 11 << 20 // a little over the 10,485,760-char base64 bound

var (
	whitelistNamePattern = regexp.MustCompile(whitelistNameRegex)
	addressPattern       = regexp.MustCompile(addressRegex)
)

// HTTP holds the dependencies shared by every route handler.
type HTTP struct {
	orchestrator *whitelist.Orchestrator
	readPath     *whitelist.ReadPath
	validate     *validator.Validate
	log          *zap.Logger
}

// New builds an HTTP handler set over the given orchestrator and read path.
func New(orchestrator *whitelist.Orchestrator, readPath *whitelist.ReadPath, log *zap.Logger) *HTTP {
	return &HTTP{
		orchestrator: orchestrator,
		readPath:     readPath,
		validate:     validator.New(),
		log:          log,
	}
}

func (h *HTTP) uploadWhitelist(w http.ResponseWriter, r *http.Request) error {
	var req UploadWhitelistRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}
	if err := validateWhitelistName(req.WhitelistName); err != nil {
		return err
	}

	content, err := base64.StdEncoding.DecodeString(req.WhitelistBase64Content)
	if err != nil {
		return apperrors.Validation(err, "whitelistBase64Content is not valid base64")
	}

	if err := h.orchestrator.Upload(r.Context(), req.WhitelistName, content, false); err != nil {
		return err
	}

	apphttp.WriteData(w, map[string]string{"whitelistName": req.WhitelistName})
	return nil
}

func (h *HTTP) deleteWhitelist(w http.ResponseWriter, r *http.Request) error {
	var req WhitelistNameRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}
	if err := validateWhitelistName(req.WhitelistName); err != nil {
		return err
	}

	if err := h.orchestrator.DeleteWhitelist(r.Context(), req.WhitelistName); err != nil {
		return err
	}

	apphttp.WriteData(w, map[string]string{"whitelistName": req.WhitelistName})
	return nil
}

func (h *HTTP) createMerkleTree(w http.ResponseWriter, r *http.Request) error {
	var req WhitelistNameRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}
	if err := validateWhitelistName(req.WhitelistName); err != nil {
		return err
	}

	root, err := h.orchestrator.CreateTree(r.Context(), req.WhitelistName)
	if err != nil {
		return err
	}

	apphttp.WriteData(w, map[string]string{"whitelistName": req.WhitelistName, "merkleRoot": root})
	return nil
}

func (h *HTTP) deleteMerkleTree(w http.ResponseWriter, r *http.Request) error {
	var req WhitelistNameRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}
	if err := validateWhitelistName(req.WhitelistName); err != nil {
		return err
	}

	if err := h.orchestrator.DeleteTree(r.Context(), req.WhitelistName); err != nil {
		return err
	}

	apphttp.WriteData(w, map[string]string{"whitelistName": req.WhitelistName})
	return nil
}

func (h *HTTP) getMerkleRoot(w http.ResponseWriter, r *http.Request) error {
	name := r.URL.Query().Get("whitelistName")
	if err := validateWhitelistName(name); err != nil {
		return err
	}

	root, err := h.readPath.GetMerkleRoot(r.Context(), name)
	if err != nil {
		return err
	}

	apphttp.WriteData(w, root)
	return nil
}

func (h *HTTP) getMerkleProof(w http.ResponseWriter, r *http.Request) error {
	name := r.URL.Query().Get("whitelistName")
	address := r.URL.Query().Get("whitelistAddress")
	if err := validateWhitelistName(name); err != nil {
		return err
	}
	if !addressPattern.MatchString(address) {
		return apperrors.Validation(nil, "whitelistAddress fails syntax validation")
	}

	proof, err := h.readPath.GetMerkleProof(r.Context(), name, address)
	if err != nil {
		return err
	}

	apphttp.WriteData(w, proof)
	return nil
}

func (h *HTTP) getMerkleProofs(w http.ResponseWriter, r *http.Request) error {
	name := r.URL.Query().Get("whitelistName")
	if err := validateWhitelistName(name); err != nil {
		return err
	}

	proofs, err := h.readPath.GetMerkleProofs(r.Context(), name)
	if err != nil {
		return err
	}

	apphttp.WriteData(w, proofs)
	return nil
}

func (h *HTTP) getMerkleRoots(w http.ResponseWriter, r *http.Request) error {
	pageSize, token, err := parsePageQuery(r)
	if err != nil {
		return err
	}

	page, err := h.readPath.GetMerkleRoots(r.Context(), pageSize, token)
	if err != nil {
		return err
	}

	apphttp.WriteData(w, page)
	return nil
}

func (h *HTTP) getMerkleTrees(w http.ResponseWriter, r *http.Request) error {
	pageSize, token, err := parsePageQuery(r)
	if err != nil {
		return err
	}

	page, err := h.readPath.GetMerkleTrees(r.Context(), pageSize, token)
	if err != nil {
		return err
	}

	apphttp.WriteData(w, page)
	return nil
}

func (h *HTTP) decode(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		return apperrors.Validation(err, "failed to read request body")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return apperrors.Validation(err, "invalid JSON body")
	}
	if err := h.validate.Struct(dst); err != nil {
		return apperrors.Validation(err, "request failed schema validation")
	}
	return nil
}

func validateWhitelistName(name string) error {
	if !whitelistNamePattern.MatchString(name) || len(name) < 1 || len(name) > 1024 {
		return apperrors.Validation(nil, "whitelistName fails syntax validation")
	}
	return nil
}

func parsePageQuery(r *http.Request) (int, string, error) {
	pageSizeStr := r.URL.Query().Get("pageSize")
	pageSize, err := strconv.Atoi(pageSizeStr)
	if err != nil || pageSize < whitelist.MinPageSize || pageSize > whitelist.MaxPageSize {
		return 0, "", apperrors.Validation(err, "pageSize must be an integer between 1 and 1000")
	}

	token := r.URL.Query().Get("startingToken")
	if token != "" && !whitelistNamePattern.MatchString(token) {
		return 0, "", apperrors.Validation(nil, "startingToken fails syntax validation")
	}

	return pageSize, token, nil
}
