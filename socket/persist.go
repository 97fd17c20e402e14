package socket

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"naskahcollab/internal/document/model"
	"naskahcollab/pkg/logger"
	"naskahcollab/pkg/metrics"
)

// pendingTitles holds accepted title edits not yet written to the store, latest per document.
type pendingTitles struct {
	mu     sync.Mutex
	titles map[string]string
}

func newPendingTitles() *pendingTitles {
	return &pendingTitles{titles: make(map[string]string)}
}

func (t *pendingTitles) record(docID, title string) {
	t.mu.Lock()
	t.titles[docID] = title
	t.mu.Unlock()
}

func (t *pendingTitles) peek(docID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	title, ok := t.titles[docID]
	return title, ok
}

func (t *pendingTitles) take(docID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	title, ok := t.titles[docID]
	if ok {
		delete(t.titles, docID)
	}
	return title, ok
}

func (t *pendingTitles) docs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.titles))
	for id := range t.titles {
		ids = append(ids, id)
	}
	return ids
}

// save persists a full snapshot from an owner or editor. Viewer saves are ignored.
// Periodic and manual saves take this same path.
func (h *Hub) save(c *Client, raw json.RawMessage) {
	p, ok := h.sender(c.id, SaveType)
	if !ok {
		return
	}
	if !model.Can(p.Role, model.ActionWrite) {
		drop("forbidden", c.id, SaveType)
		return
	}
	var req SavePayload
	if err := json.Unmarshal(raw, &req); err != nil || len(req.Content) == 0 || bytes.Equal(req.Content, []byte("null")) {
		drop("malformed", c.id, SaveType)
		return
	}

	ctx, cancel := h.storeContext()
	defer cancel()
	if err := h.docs.SaveSnapshot(ctx, p.DocID, req.Content, req.Title); err != nil {
		metrics.DocumentWrites.WithLabelValues("snapshot", "error").Inc()
		logger.Sugar.Errorw("Failed to save document", "document_id", p.DocID, "connection_id", c.id, "error", err)
		return
	}
	metrics.DocumentWrites.WithLabelValues("snapshot", "ok").Inc()
	// The saved title supersedes any title edit still waiting to be flushed.
	if req.Title != "" {
		h.titles.take(p.DocID)
	}
}

// flushTitle writes docID's pending title, if any. A failed write is logged and not retried.
func (h *Hub) flushTitle(ctx context.Context, docID string) {
	title, ok := h.titles.take(docID)
	if !ok {
		return
	}
	if err := h.docs.UpdateTitle(ctx, docID, title); err != nil {
		metrics.DocumentWrites.WithLabelValues("title", "error").Inc()
		logger.Sugar.Errorf("Failed to save title for doc %s: %v", docID, err)
		return
	}
	metrics.DocumentWrites.WithLabelValues("title", "ok").Inc()
}

func (h *Hub) flushTitles(ctx context.Context) {
	for _, docID := range h.titles.docs() {
		h.flushTitle(ctx, docID)
	}
}

// SaveWorker writes pending title edits every TitleFlush until ctx is done, then
// performs a final flush.
func (h *Hub) SaveWorker(ctx context.Context) {
	ticker := time.NewTicker(h.opts.TitleFlush)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			flushCtx, cancel := h.storeContext()
			h.flushTitles(flushCtx)
			cancel()
		case <-ctx.Done():
			flushCtx, cancel := h.storeContext()
			h.flushTitles(flushCtx)
			cancel()
			logger.Sugar.Info("Save worker stopped")
			return
		}
	}
}
