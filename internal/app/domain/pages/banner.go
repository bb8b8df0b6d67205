package pages

import (
	"context"

	"github.com/a-h/templ"
	twmerge "github.com/Oudwins/tailwind-merge-go"
)

type BannerType string

const (
	BannerError   BannerType = "error"
	BannerSuccess BannerType = "success"
	BannerInfo    BannerType = "info"
)

type BannerProps struct {
	ID          string
	Type        BannerType
	Message     string
	Description string
	Class       string
}

var bannerVariants = map[BannerType]string{
	BannerError:   "border-red-300 bg-red-50 text-red-800",
	BannerSuccess: "border-green-300 bg-green-50 text-green-800",
	BannerInfo:    "border-blue-300 bg-blue-50 text-blue-800",
}

func bannerClass(props BannerProps) string {
	variant, ok := bannerVariants[props.Type]
	if !ok {
		variant = bannerVariants[BannerInfo]
	}
	return twmerge.Merge("rounded-md border p-4 text-sm", variant, props.Class)
}

// Banner renders an inline message box.
func Banner(props BannerProps) templ.Component {
	return component(func(_ context.Context, hw *htmlWriter) {
		role := "status"
		if props.Type == BannerError {
			role = "alert"
		}
		hw.rawf(`<div id="%s" role="%s" class="%s">`, attr(props.ID), role, attr(bannerClass(props)))
		hw.raw(`<p class="font-medium">`)
		hw.text(props.Message)
		hw.raw(`</p>`)
		if props.Description != "" {
			hw.raw(`<p class="mt-1">`)
			hw.text(props.Description)
			hw.raw(`</p>`)
		}
		hw.raw(`</div>`)
	})
}
