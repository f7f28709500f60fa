package service

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/mosaicnetworks/accord/src/attachment"
	"github.com/mosaicnetworks/accord/src/contract"
	"github.com/mosaicnetworks/accord/src/ledger"
	"github.com/mosaicnetworks/accord/src/node"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// MaxAttachmentSize bounds the body of POST /attachments.
const MaxAttachmentSize = 16 << 20

// Service ...
type Service struct {
	bindAddress string
	node        *node.Node
	mux         *http.ServeMux
	logger      *logrus.Entry
}

// AgreementRequest is the body of POST /agreements.
type AgreementRequest struct {
	Counterparty string `json:"counterparty"`
	Txt          string `json:"txt"`
	AttachmentID string `json:"attachment"`
	FlowID       string `json:"flow_id,omitempty"`
}

// AttachmentResponse is the body returned by POST /attachments.
type AttachmentResponse struct {
	ID string `json:"id"`
}

// ErrorResponse is the body of failed requests. Contract is set when the
// failure is a contract verification error.
type ErrorResponse struct {
	Error    string `json:"error"`
	Contract string `json:"contract,omitempty"`
}

// NewService ...
func NewService(bindAddress string, n *node.Node, logger *logrus.Entry) *Service {
	service := Service{
		bindAddress: bindAddress,
		node:        n,
		mux:         http.NewServeMux(),
		logger:      logger,
	}

	service.registerHandlers()

	return &service
}

func (s *Service) registerHandlers() {
	s.logger.Debug("Registering Accord API handlers")
	s.mux.HandleFunc("/stats", s.makeHandler(http.MethodGet, s.GetStats))
	s.mux.HandleFunc("/peers", s.makeHandler(http.MethodGet, s.GetPeers))
	s.mux.HandleFunc("/states", s.makeHandler(http.MethodGet, s.GetStates))
	s.mux.HandleFunc("/tx/", s.makeHandler(http.MethodGet, s.GetTransaction))
	s.mux.HandleFunc("/txs", s.makeHandler(http.MethodGet, s.GetTransactions))
	s.mux.HandleFunc("/attachments", s.makeHandler(http.MethodPost, s.PostAttachment))
	s.mux.HandleFunc("/attachments/", s.makeHandler(http.MethodGet, s.GetAttachment))
	s.mux.HandleFunc("/agreements", s.makeHandler(http.MethodPost, s.PostAgreement))
	s.mux.HandleFunc("/flows", s.makeHandler(http.MethodGet, s.GetFlows))
	s.mux.HandleFunc("/flows/", s.makeHandler(http.MethodGet, s.GetFlow))
	s.mux.Handle("/metrics", promhttp.HandlerFor(s.node.Registry(), promhttp.HandlerOpts{}))
}

func (s *Service) makeHandler(method string, fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// enable CORS
		w.Header().Set("Access-Control-Allow-Origin", "*")

		if r.Method != method {
			w.Header().Set("Allow", method)
			s.writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
			return
		}

		fn(w, r)
	}
}

// Handler returns the handler serving the API.
func (s *Service) Handler() http.Handler {
	return s.mux
}

// Serve calls ListenAndServe. This is a blocking call.
func (s *Service) Serve() {
	s.logger.WithField("bind_address", s.bindAddress).Debug("Serving Accord API")

	err := http.ListenAndServe(s.bindAddress, s.mux)
	if err != nil {
		s.logger.Error(err)
	}
}

// GetStats ...
func (s *Service) GetStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.node.GetStats())
}

// GetPeers ...
func (s *Service) GetPeers(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.node.GetPeers())
}

// GetStates returns the unconsumed states of the type given by the "type"
// query parameter, AgreementState by default.
func (s *Service) GetStates(w http.ResponseWriter, r *http.Request) {
	stateType := ledger.AgreementStateType
	if t := r.URL.Query().Get("type"); t != "" {
		stateType = ledger.StateType(t)
	}

	states, err := s.node.QueryStates(stateType)
	if err != nil {
		s.logger.WithError(err).Errorf("Querying %s states", stateType)
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, http.StatusOK, states)
}

// GetTransaction ...
func (s *Service) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/tx/")

	stx, err := s.node.GetTransaction(id)
	if err != nil {
		if ledger.IsNotFound(err) {
			s.writeError(w, http.StatusNotFound, err)
			return
		}
		s.logger.WithError(err).Errorf("Retrieving transaction %s", id)
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, http.StatusOK, stx)
}

// GetTransactions returns the recorded transactions in recording order.
func (s *Service) GetTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.node.Transactions()
	if err != nil {
		s.logger.WithError(err).Error("Retrieving transactions")
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, http.StatusOK, txs)
}

// GetAttachment returns the raw bytes of an attachment.
func (s *Service) GetAttachment(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/attachments/")

	data, err := s.node.OpenAttachment(id)
	if err != nil {
		if attachment.IsNotFound(err) {
			s.writeError(w, http.StatusNotFound, err)
			return
		}
		s.logger.WithError(err).Errorf("Opening attachment %s", id)
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// PostAttachment imports the request body as an attachment.
func (s *Service) PostAttachment(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxAttachmentSize))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(data) == 0 {
		s.writeError(w, http.StatusBadRequest, errors.New("empty attachment"))
		return
	}

	id, err := s.node.ImportAttachment(data)
	if err != nil {
		s.logger.WithError(err).Error("Importing attachment")
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, http.StatusOK, AttachmentResponse{ID: id})
}

// PostAgreement runs an agreement flow and returns the finalized transaction.
// The request waits for the outcome of the flow.
func (s *Service) PostAgreement(w http.ResponseWriter, r *http.Request) {
	var req AgreementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Counterparty == "" || req.AttachmentID == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("counterparty and attachment are required"))
		return
	}

	stx, err := s.node.Propose(r.Context(), node.ProposeArgs{
		Counterparty: req.Counterparty,
		Txt:          req.Txt,
		AttachmentID: req.AttachmentID,
		FlowID:       req.FlowID,
	})
	if err != nil {
		if ve, ok := contract.AsVerificationError(err); ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(ErrorResponse{Error: err.Error(), Contract: ve.Contract})
			return
		}
		if errors.Is(err, node.ErrUnknownPeer) {
			s.writeError(w, http.StatusNotFound, err)
			return
		}
		s.logger.WithError(err).Error("Agreement flow failed")
		s.writeError(w, http.StatusBadGateway, err)
		return
	}

	s.writeJSON(w, http.StatusOK, stx)
}

// GetFlows returns the latest checkpoint of every flow.
func (s *Service) GetFlows(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.node.Checkpoints())
}

// GetFlow returns the checkpoints of one flow.
func (s *Service) GetFlow(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/flows/")

	history := s.node.FlowHistory(id)
	if len(history) == 0 {
		s.writeError(w, http.StatusNotFound, errors.New("unknown flow"))
		return
	}

	s.writeJSON(w, http.StatusOK, history)
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("Encoding response")
	}
}

func (s *Service) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}
