package main

import (
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"
)

// settings is the part of the pipeline controller the settings endpoint
// changes
type settings interface {
	SetUseAccelerator(on bool) error
	SetNumThreads(n int) error
}

// settingsHandler changes the detector settings, eg:
// POST /settings?threads=4&accelerator=true.  The change is queued behind the
// frame being processed.
func settingsHandler(s settings, log logrus.FieldLogger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		q := r.URL.Query()

		if v := q.Get("threads"); v != "" {
			n, err := strconv.Atoi(v)

			if err != nil || n < 0 {
				http.Error(w, "invalid threads", http.StatusBadRequest)
				return
			}

			if err := s.SetNumThreads(n); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}

			log.WithField("threads", n).Info("Detector thread count changed")
		}

		if v := q.Get("accelerator"); v != "" {
			on, err := strconv.ParseBool(v)

			if err != nil {
				http.Error(w, "invalid accelerator", http.StatusBadRequest)
				return
			}

			if err := s.SetUseAccelerator(on); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}

			log.WithField("accelerator", on).Info("Detector accelerator changed")
		}

		w.WriteHeader(http.StatusAccepted)
	})
}
