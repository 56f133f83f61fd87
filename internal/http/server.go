package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"moff.io/walletkit/internal/chains"
	"moff.io/walletkit/internal/qrcode"
	"moff.io/walletkit/internal/walletkit"
	"moff.io/walletkit/pkg/errors"
	"moff.io/walletkit/pkg/log"
	"moff.io/walletkit/pkg/log/middleware"
)

type Options struct {
	Addr    string
	Session *walletkit.Accessor
	Pairing *walletkit.Accessor
	Encoder *qrcode.Encoder
	// Limiter is optional
	Limiter RateLimiter
	Timeout time.Duration
}

type Server struct {
	opts   Options
	router *gin.Engine
}

func NewServer(opts Options) *Server {
	if opts.Encoder == nil {
		opts.Encoder = qrcode.NewEncoder()
	}
	router := gin.New()
	router.Use(middleware.RecoveredHTTPLog(), middleware.TimeoutHTTP(opts.Timeout))
	s := &Server{opts: opts, router: router}

	router.GET("/hello", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"hello": "world"})
	})
	wk := router.Group("/walletkit")
	if opts.Limiter != nil {
		wk.Use(rateLimited(opts.Limiter))
	}
	wk.GET("/status", s.status)
	wk.GET("/session/config", s.sessionConfig)
	wk.GET("/qrcode", s.qrCode)
	wk.POST("/pair", s.pair)
	wk.POST("/verify", s.verify)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run blocks serving on the configured address.
func (s *Server) Run() error {
	log.Infof("http server listening on %v", s.opts.Addr)
	return s.router.Run(s.opts.Addr)
}

type accessorStatus struct {
	Ready bool   `json:"ready"`
	Error string `json:"error,omitempty"`
}

func statusOf(a *walletkit.Accessor) accessorStatus {
	if a == nil {
		return accessorStatus{Error: "not configured"}
	}
	st := accessorStatus{Ready: a.Ready()}
	if err := a.LastError(); err != nil {
		st.Error = err.Error()
	}
	return st
}

func (s *Server) status(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"session": statusOf(s.opts.Session),
		"pairing": statusOf(s.opts.Pairing),
	})
}

func getKit(a *walletkit.Accessor) (*walletkit.Kit, error) {
	if a == nil {
		return nil, walletkit.ErrNotInitialized
	}
	return a.Get()
}

func (s *Server) sessionConfig(ctx *gin.Context) {
	kit, err := getKit(s.opts.Session)
	if err != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	cfg := kit.Config()
	ctx.JSON(http.StatusOK, gin.H{
		"chains":     cfg.Namespaces(),
		"metadata":   cfg.Metadata,
		"pairings":   len(kit.Pairings()),
		"project_id": cfg.ProjectID,
	})
}

func (s *Server) qrCode(ctx *gin.Context) {
	// curl 'http://127.0.0.1:8080/walletkit/qrcode?uri=wc%3A1234%402%3Frelay-protocol%3Dirn%26symKey%3Dabcd'
	uri := ctx.Query("uri")
	if uri == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "uri not present"})
		return
	}
	dataURL, err := s.opts.Encoder.EncodeConnectionURI(ctx.Request.Context(), uri)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data_url": dataURL})
}

type pairRequest struct {
	URI string `json:"uri" binding:"required"`
}

func (s *Server) pair(ctx *gin.Context) {
	var req pairRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "uri not present"})
		return
	}
	kit, err := getKit(s.opts.Pairing)
	if err != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	p, err := kit.Pair(ctx.Request.Context(), req.URI)
	switch {
	case err == nil:
	case errors.Is(err, walletkit.ErrInvalidURI), errors.Is(err, walletkit.ErrPairingExpired):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	default:
		log.Error(err)
		ctx.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	resp := gin.H{
		"topic":           p.Topic,
		"subscription_id": p.SubscriptionID,
		"relay_protocol":  p.RelayProtocol,
	}
	if !p.Expiry.IsZero() {
		resp["expiry"] = p.Expiry.Unix()
	}
	ctx.JSON(http.StatusOK, resp)
}

type verifyRequest struct {
	Address   string `json:"address" binding:"required"`
	Signature string `json:"signature" binding:"required"`
	Message   string `json:"message"`
	// Chain is an optional CAIP-2 id the signer claims to be on.
	Chain string `json:"chain"`
}

func (s *Server) verify(ctx *gin.Context) {
	var req verifyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "address and signature are required"})
		return
	}
	resp := gin.H{
		"valid": chains.VerifyPersonalSignature(req.Address, req.Signature, []byte(req.Message)),
	}
	if req.Chain != "" {
		id, err := chains.ParseCAIP2(req.Chain)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		chain, ok := chains.Lookup(id)
		if !ok {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "unknown chain " + req.Chain})
			return
		}
		resp["chain"] = chain.Name
	}
	ctx.JSON(http.StatusOK, resp)
}
