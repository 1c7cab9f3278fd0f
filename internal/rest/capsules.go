package rest

import (
	"net/http"

	"github.com/dfryer1193/timecapsule/api"
	"github.com/dfryer1193/timecapsule/capsule/domain"
	"github.com/gin-gonic/gin"
)

func (a *Api) ListCapsules(c *gin.Context) {
	capsules, err := a.capsules.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]api.Capsule, 0, len(capsules))
	for _, capsule := range capsules {
		out = append(out, toApiCapsule(capsule))
	}
	c.JSON(http.StatusOK, out)
}

func (a *Api) CreateCapsule(c *gin.Context) {
	proto := &api.CapsuleProto{}
	if err := c.ShouldBindJSON(proto); err != nil {
		c.JSON(http.StatusBadRequest, api.Error{Error: err.Error(), Kind: domain.InvalidInput.String()})
		return
	}

	capsule, err := a.capsules.Create(c.Request.Context(), proto.Name)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.Error{Error: err.Error(), Kind: domain.InvalidInput.String()})
		return
	}
	c.JSON(http.StatusCreated, toApiCapsule(capsule))
}

func (a *Api) GetActiveCapsule(c *gin.Context) {
	capsule, err := a.capsules.GetOrCreateActive(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toApiCapsule(capsule))
}

func (a *Api) GetCapsule(c *gin.Context) {
	id, ok := capsuleID(c)
	if !ok {
		return
	}

	capsule, err := a.capsules.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toApiCapsule(capsule))
}

func (a *Api) DeleteCapsule(c *gin.Context) {
	id, ok := capsuleID(c)
	if !ok {
		return
	}

	if err := a.capsules.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *Api) GetProgress(c *gin.Context) {
	id, ok := capsuleID(c)
	if !ok {
		return
	}

	p, err := a.selfies.Progress(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.Progress{
		CapsuleID: id,
		Entries:   p.Entries,
		LastDay:   p.LastDay,
		TotalDays: domain.CapsuleLength,
	})
}

func (a *Api) ExportCapsule(c *gin.Context) {
	id, ok := capsuleID(c)
	if !ok {
		return
	}

	if _, err := a.capsules.Get(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}

	switch r := a.exports.ExportCapsule(c.Request.Context(), id).(type) {
	case domain.ExportSuccess:
		placeholders := r.Placeholders
		if placeholders == nil {
			placeholders = []int{}
		}
		c.JSON(http.StatusCreated, api.Export{
			Path:         r.Path,
			FileName:     r.FileName,
			ImageCount:   r.ImageCount,
			Placeholders: placeholders,
		})
	case domain.ExportError:
		writeFailure(c, r.Failure)
	}
}
