package pages

import (
	"context"

	"github.com/a-h/templ"
	twmerge "github.com/Oudwins/tailwind-merge-go"

	"github.com/FACorreiaa/go-estateportal/internal/app/models"
)

const htmxScript = "https://unpkg.com/htmx.org@2.0.4"

// watchScript follows the guard's redirect event for the mounted page.
const watchScript = `<script>
(function () {
  var el = document.querySelector("[data-session-watch]");
  if (!el || !window.EventSource) return;
  var es = new EventSource(el.getAttribute("data-session-watch"));
  es.addEventListener("redirect", function (e) {
    es.close();
    window.location.assign(e.data);
  });
})();
</script>`

func navLinkClass(active bool) string {
	base := "px-3 py-2 rounded-md text-sm font-medium text-gray-700 hover:bg-gray-100"
	if active {
		return twmerge.Merge(base, "bg-gray-900 text-white hover:bg-gray-800")
	}
	return base
}

// LayoutPage wraps content in the full document.
func LayoutPage(l models.LayoutTempl) templ.Component {
	return component(func(ctx context.Context, hw *htmlWriter) {
		hw.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"/>`)
		hw.raw(`<meta name="viewport" content="width=device-width, initial-scale=1"/>`)
		hw.raw(`<title>`)
		hw.text(l.Title)
		hw.raw(`</title>`)
		hw.rawf(`<script src="%s" defer></script>`, htmxScript)
		hw.raw(`</head><body class="min-h-screen bg-white" hx-boost="true">`)

		hw.raw(`<header class="border-b"><nav class="mx-auto flex max-w-6xl items-center gap-2 p-4">`)
		for _, item := range l.Nav.Items {
			hw.rawf(`<a href="%s" class="%s">`, attr(item.URL), attr(navLinkClass(item.Name == l.ActiveNav)))
			hw.text(item.Name)
			hw.raw(`</a>`)
		}
		if l.Session.Authenticated {
			hw.raw(`<div id="session-badge" class="ml-auto flex items-center gap-3 text-sm">`)
			hw.raw(`<span class="font-medium">`)
			hw.text(l.Session.DisplayName())
			hw.raw(`</span><span class="rounded bg-gray-100 px-2 py-0.5 text-xs">`)
			hw.text(RoleLabel(l.Session.Role))
			hw.raw(`</span>`)
			hw.raw(`<form method="post" action="/auth/logout" hx-post="/auth/logout"><button type="submit" class="text-gray-600 hover:underline">Sign out</button></form>`)
			hw.raw(`</div>`)
		}
		hw.raw(`</nav></header>`)

		if l.Watch != "" {
			hw.rawf(`<main id="content" class="mx-auto max-w-6xl p-4" data-session-watch="%s">`, attr(l.Watch))
		} else {
			hw.raw(`<main id="content" class="mx-auto max-w-6xl p-4">`)
		}
		hw.component(ctx, l.Content)
		hw.raw(`</main>`)

		if l.Watch != "" {
			hw.raw(watchScript)
		}
		hw.raw(`</body></html>`)
	})
}
