package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/perchlab/perch/internal/model"
	"github.com/perchlab/perch/internal/query"
	"github.com/perchlab/perch/internal/timeparse"
)

type pluginDetail struct {
	model.PluginStatus
	Name string                      `json:"name,omitempty"`
	Data map[string]model.GroupChart `json:"data,omitempty"`
}

func failWith(c *gin.Context, status int, reason string) {
	c.JSON(status, gin.H{"ok": false, "reason": reason})
}

// window resolves the optional gte/lte query params. Absent params
// fall back to the default window; present but unparseable params are
// an error.
func window(c *gin.Context) (gte, lte time.Time, ok bool) {
	gte, lte, err := timeparse.Window(c.Query("gte"), c.Query("lte"), time.Now())
	if err != nil {
		failWith(c, http.StatusBadRequest, "The given datetime cannot be parsed.")
		return time.Time{}, time.Time{}, false
	}
	return gte, lte, true
}

func (s *Server) handleList(c *gin.Context) {
	c.JSON(http.StatusOK, s.handler.Plugins())
}

func (s *Server) handlePlugin(c *gin.Context) {
	name := c.Param("name")
	status, found := s.handler.Plugins()[name]
	if !found {
		failWith(c, http.StatusNotFound, "Plugin does not exist.")
		return
	}

	gte, lte, ok := window(c)
	if !ok {
		return
	}

	data, err := s.handler.Logs(c.Request.Context(), name, gte, lte)
	if err != nil {
		if errors.Is(err, query.ErrNotFound) {
			failWith(c, http.StatusNotFound, "Plugin does not exist.")
			return
		}
		s.logger.Error("plugin logs query failed", zap.Error(err))
		failWith(c, http.StatusInternalServerError, "Failed to read plugin logs.")
		return
	}

	c.JSON(http.StatusOK, pluginDetail{
		PluginStatus: status,
		Name:         name,
		Data:         data,
	})
}

func (s *Server) handleAll(c *gin.Context) {
	gte, lte, ok := window(c)
	if !ok {
		return
	}

	all := make(map[string]pluginDetail)
	for name, status := range s.handler.Plugins() {
		data, err := s.handler.Logs(c.Request.Context(), name, gte, lte)
		if err != nil {
			s.logger.Error("plugin logs query failed", zap.Error(err))
			failWith(c, http.StatusInternalServerError, "Failed to read plugin logs.")
			return
		}
		all[name] = pluginDetail{PluginStatus: status, Data: data}
	}

	c.JSON(http.StatusOK, gin.H{"data": all})
}

func (s *Server) handleHealth(c *gin.Context) {
	resp := gin.H{
		"status":  "ok",
		"uptime":  time.Since(s.startTime).String(),
		"plugins": len(s.handler.Names()),
	}
	if s.counter != nil {
		count, err := s.counter.TotalSampleCount(c.Request.Context())
		if err != nil {
			failWith(c, http.StatusInternalServerError, "Failed to read health metrics.")
			return
		}
		resp["sample_count"] = count
	}
	c.JSON(http.StatusOK, resp)
}
