package cli

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	rgerrors "github.com/ops-tooling/rolegraph/pkg/errors"
)

// newServeCmd creates the serve command: a small HTTP server for the
// generated report directory, so the HTML pages and graph image can be
// shared without a separate web server.
func newServeCmd() *cobra.Command {
	var (
		addr  string
		index string
	)

	cmd := &cobra.Command{
		Use:   "serve <dir>",
		Short: "Serve generated reports over HTTP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			info, err := os.Stat(dir)
			if err != nil || !info.IsDir() {
				return rgerrors.New(rgerrors.ErrCodeInvalidPath, "not a directory: %s", dir)
			}

			logger := loggerFromContext(cmd.Context())

			r := chi.NewRouter()
			r.Use(middleware.RealIP)
			r.Use(middleware.Recoverer)
			r.Get("/", func(w http.ResponseWriter, req *http.Request) {
				http.ServeFile(w, req, filepath.Join(dir, index))
			})
			r.Handle("/*", http.FileServer(http.Dir(dir)))

			srv := &http.Server{
				Addr:              addr,
				Handler:           r,
				ReadHeaderTimeout: 5 * time.Second,
			}

			go func() {
				<-cmd.Context().Done()
				srv.Close()
			}()

			logger.Infof("serving %s on http://%s", dir, addr)
			printInfo("Serving %s on http://%s", dir, addr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "listen address")
	cmd.Flags().StringVar(&index, "index", "roles.html", "file served at /")

	return cmd
}
