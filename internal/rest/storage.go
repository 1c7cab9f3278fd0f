package rest

import (
	"net/http"

	"github.com/dfryer1193/timecapsule/api"
	"github.com/dfryer1193/timecapsule/capsule/domain"
	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
)

func (a *Api) GetStorage(c *gin.Context) {
	info, err := a.selfies.StorageInfo()
	if err != nil {
		writeError(c, err)
		return
	}
	stats, err := a.exports.Stats()
	if err != nil {
		writeError(c, err)
		return
	}

	resp := api.Storage{
		TotalSize:      info.TotalSize,
		TotalSizeHuman: humanize.IBytes(uint64(info.TotalSize)),
		SelfiesSize:    info.SelfiesSize,
		ThumbnailsSize: info.ThumbnailsSize,
		ExportsSize:    info.ExportsSize,
		SelfieCount:    info.SelfieCount,
	}
	resp.Exports.Count = stats.TotalExports
	resp.Exports.TotalSize = stats.TotalSizeBytes
	resp.Exports.LastExport = formatTime(stats.LastExport)

	c.JSON(http.StatusOK, resp)
}

// Cleanup deletes stored files past their retention. Zero or missing
// retention values fall back to the configured defaults.
func (a *Api) Cleanup(c *gin.Context) {
	proto := &api.CleanupProto{}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(proto); err != nil {
			c.JSON(http.StatusBadRequest, api.Error{Error: err.Error(), Kind: domain.InvalidInput.String()})
			return
		}
	}
	if proto.SelfieKeepDays <= 0 {
		proto.SelfieKeepDays = a.selfieKeepDays
	}
	if proto.ExportKeepDays <= 0 {
		proto.ExportKeepDays = a.exportKeepDays
	}

	var resp api.Cleanup
	var err error
	if resp.SelfiesDeleted, err = a.selfies.CleanupOldFiles(proto.SelfieKeepDays); err != nil {
		writeError(c, err)
		return
	}
	if resp.ExportsDeleted, err = a.exports.CleanupOldExports(proto.ExportKeepDays); err != nil {
		writeError(c, err)
		return
	}

	// removed files may still be cached
	a.thumbnails.Purge()
	c.JSON(http.StatusOK, resp)
}
