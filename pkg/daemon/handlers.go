package daemon

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/osctools/dcocal/pkg/config"
	"github.com/osctools/dcocal/pkg/dco"
	"github.com/osctools/dcocal/pkg/version"
)

func getState(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, ctrl.StateInfo())
}

func getResults(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, ctrl.Results())
}

func getTargets(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, dco.Targets)
}

func getHistory(c *gin.Context) {
	if !conf.Diagnostics() {
		c.IndentedJSON(http.StatusNotFound, "diagnostics are disabled")
		return
	}
	c.IndentedJSON(http.StatusOK, ctrl.History())
}

func getConfig(c *gin.Context) {
	fc, err := config.NewRawFileConfigFromConfig(conf)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	c.IndentedJSON(http.StatusOK, fc)
}

func getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}

// getEvents streams controller state transitions as SSE.
func getEvents(c *gin.Context) {
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")

	c.Stream(func(_ io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, ev.Data)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
