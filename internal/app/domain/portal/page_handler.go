package portal

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/FACorreiaa/go-estateportal/internal/app/domain/guard"
	"github.com/FACorreiaa/go-estateportal/internal/app/domain/pages"
)

type PageHandlers struct {
	*BaseHandler
}

func NewPageHandlers(base *BaseHandler) *PageHandlers {
	return &PageHandlers{BaseHandler: base}
}

func (h *PageHandlers) Home(c *gin.Context) {
	h.RenderPage(c, "Properties", "Properties", pages.Home(currentSession(c)))
}

func (h *PageHandlers) MyPage(c *gin.Context) {
	h.RenderProtected(c, guard.RequireCustomer, "My Page", "My Page", pages.MyPage(currentSession(c)))
}

func (h *PageHandlers) Subscriptions(c *gin.Context) {
	h.RenderProtected(c, guard.RequireCustomer, "Subscriptions", "Subscriptions", pages.Subscriptions())
}

func (h *PageHandlers) Exchange(c *gin.Context) {
	h.RenderProtected(c, guard.RequireCustomer, "Exchange", "Exchange", pages.Exchange())
}

func (h *PageHandlers) AgentDashboard(c *gin.Context) {
	h.RenderProtected(c, guard.RequireAgent, "Agent dashboard", "Dashboard", pages.AgentDashboard(currentSession(c)))
}

func (h *PageHandlers) AgentProperties(c *gin.Context) {
	h.RenderProtected(c, guard.RequireAgent, "Listings", "Listings", pages.AgentProperties())
}

func (h *PageHandlers) Account(c *gin.Context) {
	h.RenderProtected(c, guard.RequireAuthenticated, "Account", "Account", pages.Account(currentSession(c)))
}

func (h *PageHandlers) NotFound(c *gin.Context) {
	h.renderPage(c, http.StatusNotFound, "Not found", "", "", pages.NotFound())
}
