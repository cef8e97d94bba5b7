package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/drpcorg/crdtop"
	"github.com/drpcorg/crdtop/hlc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func AddCorsHeaders(f func(w http.ResponseWriter, req *http.Request)) func(w http.ResponseWriter, req *http.Request) {
	return func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		w.Header().Set("Access-Control-Max-Age", "86400")
		f(w, req)
	}
}

// Handler serves /op (POST an encoded operation, GET the log as JSON
// lines) and /metrics.
func (repl *REPL) Handler() http.Handler {
	registry := prometheus.NewRegistry()
	registry.MustRegister(repl.Log.Collector())
	registry.MustRegister(repl.Log.Metrics().Collectors()...)

	mux := http.NewServeMux()
	mux.HandleFunc("/op", AddCorsHeaders(OperationHandler(repl)))
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return mux
}

// MaxOperationSize bounds a POSTed operation record.
const MaxOperationSize = 1 << 20

func OperationHandler(repl *REPL) func(w http.ResponseWriter, req *http.Request) {
	return func(w http.ResponseWriter, req *http.Request) {
		switch method := req.Method; method {
		case "OPTIONS":
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST")
			w.WriteHeader(http.StatusNoContent)
		case "POST":
			body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, MaxOperationSize))
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
				return
			} else if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			op, err := repl.Replica.ReceiveBytes(req.Context(), body)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(op.String()))
		case "GET":
			from := hlc.Zero
			if q := req.URL.Query().Get("from"); q != "" {
				var err error
				if from, err = hlc.Parse(q); err != nil {
					http.Error(w, err.Error(), http.StatusBadRequest)
					return
				}
			}
			w.Header().Set("Content-Type", "application/x-ndjson")
			err := repl.Log.ScanFrom(req.Context(), from, func(op crdtop.CRDTOperation) error {
				data, err := crdtop.Encode(op)
				if err != nil {
					return err
				}
				_, err = w.Write(append(data, '\n'))
				return err
			})
			if err != nil {
				repl.Logger.ErrorCtx(req.Context(), "log scan failed", "err", err)
			}
		default:
			http.Error(w, fmt.Sprintf("Unsupported method %s", req.Method), http.StatusMethodNotAllowed)
		}
	}
}
