package pages

import (
	"context"

	"github.com/a-h/templ"

	"github.com/FACorreiaa/go-estateportal/internal/app/models"
)

type LoginProps struct {
	Next  string
	Role  models.Role
	Email string
	// Notice is rendered inside #login-response on full page loads.
	Notice *BannerProps
}

// LoginPage is the sign-in form. Errors are swapped into #login-response.
func LoginPage(props LoginProps) templ.Component {
	return component(func(ctx context.Context, hw *htmlWriter) {
		hw.raw(`<section class="mx-auto max-w-md py-12"><h1 class="mb-6 text-2xl font-semibold">Sign in</h1>`)
		hw.raw(`<form id="login-form" method="post" action="/auth/login" hx-post="/auth/login" hx-trigger="submit" hx-target="#login-response" hx-swap="innerHTML" hx-indicator="#login-loading" class="space-y-4">`)
		hw.rawf(`<input type="hidden" name="next" value="%s"/>`, attr(props.Next))

		hw.raw(`<fieldset class="flex gap-4"><legend class="sr-only">Account type</legend>`)
		selected := props.Role
		if selected != models.RoleAgent {
			selected = models.RoleCustomer
		}
		for _, role := range []models.Role{models.RoleCustomer, models.RoleAgent} {
			checked := ""
			if role == selected {
				checked = ` checked`
			}
			hw.rawf(`<label class="flex items-center gap-2"><input type="radio" name="role" value="%s"%s/>`, role.Path(), checked)
			hw.text(RoleLabel(role))
			hw.raw(`</label>`)
		}
		hw.raw(`</fieldset>`)

		hw.rawf(`<label class="block"><span class="text-sm">Email</span><input type="email" name="email" required autocomplete="email" value="%s" class="mt-1 w-full rounded border p-2"/></label>`, attr(props.Email))
		hw.raw(`<label class="block"><span class="text-sm">Password</span><input type="password" name="password" required autocomplete="current-password" class="mt-1 w-full rounded border p-2"/></label>`)
		hw.raw(`<div id="login-response">`)
		if props.Notice != nil {
			hw.component(ctx, Banner(*props.Notice))
		}
		hw.raw(`</div>`)
		hw.raw(`<button type="submit" class="w-full rounded bg-gray-900 p-2 text-white">Sign in<span id="login-loading" class="htmx-indicator ml-2">…</span></button>`)
		hw.raw(`</form></section>`)
	})
}

type PendingProps struct {
	// Tentative renders a blank shell instead of the loading indicator.
	Tentative bool
	// RetryURL is polled through htmx. Full page loads leave it empty and
	// rely on the Refresh header instead.
	RetryURL string
}

// Pending is shown while the guard waits for a status check.
func Pending(props PendingProps) templ.Component {
	return component(func(_ context.Context, hw *htmlWriter) {
		if props.RetryURL != "" {
			hw.rawf(`<div id="guard-pending" hx-get="%s" hx-trigger="load delay:1s" hx-target="#content" hx-swap="innerHTML" aria-busy="true">`, attr(props.RetryURL))
		} else {
			hw.raw(`<div id="guard-pending" aria-busy="true">`)
		}
		if !props.Tentative {
			hw.raw(`<div class="flex items-center justify-center py-24 text-gray-500" role="status"><span class="animate-pulse">Checking your session…</span></div>`)
		}
		hw.raw(`</div>`)
	})
}
