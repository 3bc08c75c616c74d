package overlay

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

const indexPage = `<!DOCTYPE html>
<html>
<head><title>posecam</title></head>
<body style="background:#000;color:#fff;font-family:monospace">
<img src="/stream" alt="camera">
<pre id="status"></pre>
<script>
const ws = new WebSocket("ws://" + location.host + "/status");
ws.onmessage = (ev) => {
  const s = JSON.parse(ev.data);
  document.getElementById("status").textContent =
    "Frame: " + s.frame + "\nCrop: " + s.crop + "\nInference Time: " + s.inference;
};
</script>
</body>
</html>
`

// Handler returns the HTTP routes of the overlay
func (o *Overlay) Handler() http.Handler {

	mux := http.NewServeMux()
	mux.HandleFunc("/", o.index)
	mux.HandleFunc("/stream", o.Stream)
	mux.HandleFunc("/status", o.StatusSocket)

	return mux
}

func (o *Overlay) index(w http.ResponseWriter, r *http.Request) {

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexPage))
}

// Stream serves the canvas as an MJPEG stream
func (o *Overlay) Stream(w http.ResponseWriter, r *http.Request) {

	flusher, ok := w.(http.Flusher)

	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	frames, last, has := o.frames.subscribe()
	defer o.frames.unsubscribe(frames)

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")

	log := o.log.WithField("remote", r.RemoteAddr)
	log.Info("Stream client connected")
	defer log.Info("Stream client disconnected")

	writeFrame := func(buf []byte) error {
		w.Write([]byte("--frame\r\n"))
		w.Write([]byte("Content-Type: image/jpeg\r\n"))
		w.Write([]byte("Content-Length: " + strconv.Itoa(len(buf)) + "\r\n\r\n"))
		w.Write(buf)
		_, err := w.Write([]byte("\r\n"))
		flusher.Flush()
		return err
	}

	if has {
		if err := writeFrame(last); err != nil {
			return
		}
	}

	// frames are only encoded while someone watches, get a fresh one
	o.Invalidate()

	for {
		select {
		case <-r.Context().Done():
			return

		case buf, ok := <-frames:
			if !ok {
				return
			}

			if err := writeFrame(buf); err != nil {
				log.WithError(err).Debug("Error writing frame")
				return
			}
		}
	}
}

// StatusSocket pushes every status change to a websocket client as JSON
func (o *Overlay) StatusSocket(w http.ResponseWriter, r *http.Request) {

	conn, err := upgrader.Upgrade(w, r, nil)

	if err != nil {
		o.log.WithError(err).Warn("Error upgrading status connection")
		return
	}

	defer conn.Close()

	statuses, last, has := o.statuses.subscribe()
	defer o.statuses.unsubscribe(statuses)

	// the reader only handles control frames, it ends when the client goes
	gone := make(chan struct{})

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go func() {
		defer close(gone)

		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	write := func(msg []byte) error {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteMessage(websocket.TextMessage, msg)
	}

	if has {
		if err := write(last); err != nil {
			return
		}
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-gone:
			return

		case msg, ok := <-statuses:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
					time.Now().Add(writeWait))
				return
			}

			if err := write(msg); err != nil {
				o.log.WithError(err).Debug("Error writing status")
				return
			}

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
