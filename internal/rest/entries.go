package rest

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dfryer1193/timecapsule/api"
	"github.com/dfryer1193/timecapsule/capsule/domain"
	"github.com/dfryer1193/timecapsule/capsule/media"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func (a *Api) ListEntries(c *gin.Context) {
	id, ok := capsuleID(c)
	if !ok {
		return
	}

	entries, err := a.selfies.ListEntries(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]api.Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, toApiEntry(e))
	}
	c.JSON(http.StatusOK, out)
}

// SaveEntry accepts a multipart form with a "photo" file and a one-word "mood".
func (a *Api) SaveEntry(c *gin.Context) {
	id, ok := capsuleID(c)
	if !ok {
		return
	}
	date := c.Param("date")

	if _, err := a.capsules.Get(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, a.maxUploadBytes)
	src, err := readPhoto(c)
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, api.Error{Error: err.Error(), Kind: domain.InvalidInput.String()})
		return
	}

	result, entry := a.selfies.SaveEntry(c.Request.Context(), id, date, c.PostForm("mood"), src)
	switch r := result.(type) {
	case domain.SaveSuccess:
		a.thumbnails.Remove(media.ThumbnailPath(date))

		resp := api.SaveEntryResponse{Entry: toApiEntry(entry)}
		if r.ThumbnailErr != nil {
			resp.ThumbnailError = r.ThumbnailErr.Error()
		}
		c.JSON(http.StatusOK, resp)
	case domain.SaveError:
		writeFailure(c, r.Failure)
	}
}

func readPhoto(c *gin.Context) ([]byte, error) {
	header, err := c.FormFile("photo")
	if err != nil {
		return nil, fmt.Errorf("missing photo: %w", err)
	}

	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open photo: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read photo: %w", err)
	}
	return data, nil
}

func (a *Api) DeleteEntry(c *gin.Context) {
	id, ok := capsuleID(c)
	if !ok {
		return
	}
	date := c.Param("date")

	if err := a.selfies.DeleteEntry(c.Request.Context(), id, date); err != nil {
		writeError(c, err)
		return
	}

	a.thumbnails.Remove(media.ThumbnailPath(date))
	c.Status(http.StatusNoContent)
}

func (a *Api) GetPhoto(c *gin.Context) {
	entry, ok := a.entry(c)
	if !ok {
		return
	}

	data, err := a.store.ReadBytes(entry.ImagePath)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/jpeg", data)
}

// cachedThumbnail is a thumbnail's bytes together with the modification time
// of the file they were read from.
type cachedThumbnail struct {
	data    []byte
	modTime time.Time
}

// GetThumbnail serves the entry's thumbnail from the in-memory cache when the
// cached copy matches the file on disk.
func (a *Api) GetThumbnail(c *gin.Context) {
	entry, ok := a.entry(c)
	if !ok {
		return
	}
	if entry.ThumbnailPath == "" {
		c.JSON(http.StatusNotFound, api.Error{Error: "entry has no thumbnail"})
		return
	}

	_, modTime, err := a.store.Stat(entry.ThumbnailPath)
	if err != nil {
		a.thumbnails.Remove(entry.ThumbnailPath)
		writeError(c, err)
		return
	}

	if cached, hit := a.thumbnails.Get(entry.ThumbnailPath); hit && cached.modTime.Equal(modTime) {
		c.Header("X-Cache", "hit")
		c.Data(http.StatusOK, "image/jpeg", cached.data)
		return
	}

	data, err := a.store.ReadBytes(entry.ThumbnailPath)
	if err != nil {
		writeError(c, err)
		return
	}

	// a write that landed during the read leaves the cache for the next request
	if _, after, err := a.store.Stat(entry.ThumbnailPath); err == nil && after.Equal(modTime) {
		if evicted := a.thumbnails.Add(entry.ThumbnailPath, cachedThumbnail{data: data, modTime: modTime}); evicted {
			log.Debug().Str("path", entry.ThumbnailPath).Msg("Thumbnail cache evicted an entry")
		}
	}

	c.Header("X-Cache", "miss")
	c.Data(http.StatusOK, "image/jpeg", data)
}

func (a *Api) entry(c *gin.Context) (*domain.Entry, bool) {
	id, ok := capsuleID(c)
	if !ok {
		return nil, false
	}

	entry, err := a.selfies.GetEntry(c.Request.Context(), id, c.Param("date"))
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return entry, true
}
