package pages

import (
	"context"

	"github.com/a-h/templ"

	"github.com/FACorreiaa/go-estateportal/internal/app/models"
)

func panel(id, title, body string) templ.Component {
	return component(func(_ context.Context, hw *htmlWriter) {
		hw.rawf(`<section id="%s" class="space-y-4"><h1 class="text-2xl font-semibold">`, attr(id))
		hw.text(title)
		hw.raw(`</h1><p class="text-gray-600">`)
		hw.text(body)
		hw.raw(`</p>`)
	})
}

func closePanel(hw *htmlWriter) { hw.raw(`</section>`) }

// Home lists tokenized properties. Listings are loaded from the API proxy.
func Home(sess models.Session) templ.Component {
	return component(func(ctx context.Context, hw *htmlWriter) {
		hw.component(ctx, panel("home", "Properties", "Browse fractionalized real-estate offerings."))
		if sess.Authenticated {
			hw.raw(`<p id="welcome" class="text-sm">Welcome back, `)
			hw.text(sess.DisplayName())
			hw.raw(`.</p>`)
		}
		hw.raw(`<div id="property-list" hx-get="/api/properties" hx-trigger="load" hx-swap="innerHTML"></div>`)
		closePanel(hw)
	})
}

func MyPage(sess models.Session) templ.Component {
	return component(func(ctx context.Context, hw *htmlWriter) {
		hw.component(ctx, panel("mypage", "My Page", "Your holdings, dividends and recent activity."))
		hw.raw(`<dl class="grid grid-cols-2 gap-2 text-sm"><dt>Email</dt><dd id="mypage-email">`)
		hw.text(sess.Email())
		hw.raw(`</dd></dl>`)
		hw.raw(`<div id="holdings" hx-get="/api/subscription/mine" hx-trigger="load"></div>`)
		closePanel(hw)
	})
}

func Subscriptions() templ.Component {
	return component(func(ctx context.Context, hw *htmlWriter) {
		hw.component(ctx, panel("subscriptions", "Subscriptions", "Subscribe to open property token offerings."))
		hw.raw(`<div id="offerings" hx-get="/api/subscription/offerings" hx-trigger="load"></div>`)
		closePanel(hw)
	})
}

func Exchange() templ.Component {
	return component(func(ctx context.Context, hw *htmlWriter) {
		hw.component(ctx, panel("exchange", "Exchange", "Place buy and sell orders for property tokens."))
		hw.raw(`<div id="order-book" hx-get="/api/trade/orders" hx-trigger="load"></div>`)
		closePanel(hw)
	})
}

func AgentDashboard(sess models.Session) templ.Component {
	return component(func(ctx context.Context, hw *htmlWriter) {
		hw.component(ctx, panel("agent", "Agent dashboard", "Listings you manage and their sale status."))
		hw.raw(`<p id="agent-name" class="text-sm">`)
		hw.text(sess.DisplayName())
		hw.raw(`</p>`)
		closePanel(hw)
	})
}

func AgentProperties() templ.Component {
	return component(func(ctx context.Context, hw *htmlWriter) {
		hw.component(ctx, panel("agent-properties", "Listings", "Properties registered by your agency."))
		hw.raw(`<div id="agent-listings" hx-get="/api/agent/properties" hx-trigger="load"></div>`)
		closePanel(hw)
	})
}

// Account shows the profile and the KYC onboarding entry point.
func Account(sess models.Session) templ.Component {
	return component(func(ctx context.Context, hw *htmlWriter) {
		hw.component(ctx, panel("account", "Account", "Profile details and identity verification."))
		hw.raw(`<dl class="grid grid-cols-2 gap-2 text-sm"><dt>Name</dt><dd id="account-name">`)
		hw.text(sess.DisplayName())
		hw.raw(`</dd><dt>Email</dt><dd id="account-email">`)
		hw.text(sess.Email())
		hw.raw(`</dd><dt>Account type</dt><dd id="account-role">`)
		hw.text(RoleLabel(sess.Role))
		hw.raw(`</dd></dl>`)
		hw.raw(`<div id="kyc" hx-get="/api/kyc/status" hx-trigger="load"></div>`)
		closePanel(hw)
	})
}

func NotFound() templ.Component {
	return component(func(ctx context.Context, hw *htmlWriter) {
		hw.component(ctx, panel("not-found", "Page not found", "The page you are looking for does not exist."))
		closePanel(hw)
	})
}
