package pages

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/a-h/templ"

	"github.com/FACorreiaa/go-estateportal/internal/app/models"
)

func render(t *testing.T, c templ.Component) *goquery.Document {
	t.Helper()
	var sb strings.Builder
	if err := c.Render(context.Background(), &sb); err != nil {
		t.Fatalf("failed to render: %v", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sb.String()))
	if err != nil {
		t.Fatalf("failed to read rendered HTML: %v", err)
	}
	return doc
}

func customerSession() models.Session {
	return models.NewAuthenticated(models.RoleCustomer,
		&models.Identity{Email: "ana@example.com", DisplayName: "Ana <Admin>"},
		models.SourceFreshCheck, time.Now())
}

func TestLoginPage(t *testing.T) {
	t.Run("it renders the sign-in form", func(t *testing.T) {
		doc := render(t, LoginPage(LoginProps{Next: "/mypage"}))

		form := doc.Find("form#login-form")
		if form.Length() == 0 {
			t.Fatal("expected a form element to be rendered, but it wasn't")
		}
		if hxPost, _ := form.Attr("hx-post"); hxPost != "/auth/login" {
			t.Errorf(`expected hx-post attribute to be "/auth/login", but got "%s"`, hxPost)
		}
		if target, _ := form.Attr("hx-target"); target != "#login-response" {
			t.Errorf(`expected hx-target "#login-response", got "%s"`, target)
		}
		if next, _ := form.Find("input[name='next']").Attr("value"); next != "/mypage" {
			t.Errorf(`expected next "/mypage", got "%s"`, next)
		}
		if form.Find("input[name='email']").Length() == 0 {
			t.Error("expected an email input element to be rendered, but it wasn't")
		}
		if form.Find("input[name='password']").Length() == 0 {
			t.Error("expected a password input element to be rendered, but it wasn't")
		}
		if form.Find("button[type='submit']").Length() == 0 {
			t.Error("expected a submit button to be rendered, but it wasn't")
		}
	})

	t.Run("it defaults the role to customer", func(t *testing.T) {
		doc := render(t, LoginPage(LoginProps{}))
		checked := doc.Find("input[name='role'][checked]")
		if v, _ := checked.Attr("value"); checked.Length() != 1 || v != "customer" {
			t.Errorf("expected customer to be checked, got %d checked with value %q", checked.Length(), v)
		}
	})

	t.Run("it renders the notice inside the response slot", func(t *testing.T) {
		doc := render(t, LoginPage(LoginProps{Notice: &BannerProps{ID: "login-error", Type: BannerError, Message: "Invalid email or password"}}))
		if doc.Find("#login-response #login-error").Length() != 1 {
			t.Error("expected the banner inside #login-response")
		}
	})

	t.Run("it keeps the chosen agent role and email", func(t *testing.T) {
		doc := render(t, LoginPage(LoginProps{Role: models.RoleAgent, Email: "bo@example.com"}))
		if v, _ := doc.Find("input[name='role'][checked]").Attr("value"); v != "agent" {
			t.Errorf(`expected "agent" to be checked, got %q`, v)
		}
		if v, _ := doc.Find("input[name='email']").Attr("value"); v != "bo@example.com" {
			t.Errorf("expected email to be kept, got %q", v)
		}
	})
}

func TestLayoutPage(t *testing.T) {
	t.Run("it renders the public navigation without a badge", func(t *testing.T) {
		doc := render(t, LayoutPage(models.LayoutTempl{
			Title:   "Properties",
			Session: models.Anonymous(),
			Nav:     models.PublicNav,
			Content: Home(models.Anonymous()),
		}))

		if doc.Find("title").Text() != "Properties" {
			t.Errorf("unexpected title %q", doc.Find("title").Text())
		}
		if doc.Find("nav a").Length() != len(models.PublicNav.Items) {
			t.Errorf("expected %d nav links, got %d", len(models.PublicNav.Items), doc.Find("nav a").Length())
		}
		if doc.Find("#session-badge").Length() != 0 {
			t.Error("expected no session badge for anonymous visitors")
		}
		if _, ok := doc.Find("main#content").Attr("data-session-watch"); ok {
			t.Error("public pages must not watch the session")
		}
		if doc.Find("main#content #home").Length() == 0 {
			t.Error("expected the content to be rendered inside main")
		}
	})

	t.Run("it renders the signed-in badge and escapes the name", func(t *testing.T) {
		sess := customerSession()
		var sb strings.Builder
		err := LayoutPage(models.LayoutTempl{
			Title:     "My Page",
			Session:   sess,
			Nav:       models.NavFor(sess),
			ActiveNav: "My Page",
			Content:   MyPage(sess),
			Watch:     "/session/watch?require=customer",
		}).Render(context.Background(), &sb)
		if err != nil {
			t.Fatalf("failed to render: %v", err)
		}
		if strings.Contains(sb.String(), "<Admin>") {
			t.Error("display name must be escaped")
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(sb.String()))
		if err != nil {
			t.Fatal(err)
		}
		badge := doc.Find("#session-badge")
		if !strings.Contains(badge.Text(), "Ana <Admin>") {
			t.Errorf("expected badge to show the display name, got %q", badge.Text())
		}
		if !strings.Contains(badge.Text(), "Customer") {
			t.Errorf("expected badge to show the role, got %q", badge.Text())
		}
		if hx, _ := badge.Find("form").Attr("hx-post"); hx != "/auth/logout" {
			t.Errorf("expected logout form, got hx-post %q", hx)
		}
		watch, _ := doc.Find("main#content").Attr("data-session-watch")
		if watch != "/session/watch?require=customer" {
			t.Errorf("unexpected watch url %q", watch)
		}
		if !strings.Contains(doc.Find("script").Text(), "EventSource") {
			t.Error("expected the watch script to be rendered")
		}
		active := doc.Find("nav a[href='/mypage']")
		if class, _ := active.Attr("class"); !strings.Contains(class, "bg-gray-900") {
			t.Errorf("expected active nav class, got %q", class)
		}
	})
}

func TestBanner(t *testing.T) {
	tests := []struct {
		name     string
		props    BannerProps
		role     string
		contains string
	}{
		{"error", BannerProps{ID: "b", Type: BannerError, Message: "Invalid email or password"}, "alert", "bg-red-50"},
		{"success", BannerProps{ID: "b", Type: BannerSuccess, Message: "ok"}, "status", "bg-green-50"},
		{"unknown type falls back to info", BannerProps{ID: "b", Type: "weird", Message: "x"}, "status", "bg-blue-50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := render(t, Banner(tt.props))
			div := doc.Find("div#b")
			if r, _ := div.Attr("role"); r != tt.role {
				t.Errorf("expected role %q, got %q", tt.role, r)
			}
			if class, _ := div.Attr("class"); !strings.Contains(class, tt.contains) {
				t.Errorf("expected class to contain %q, got %q", tt.contains, class)
			}
			if div.Find("p").First().Text() != tt.props.Message {
				t.Errorf("unexpected message %q", div.Find("p").First().Text())
			}
		})
	}

	t.Run("extra class overrides the padding", func(t *testing.T) {
		doc := render(t, Banner(BannerProps{ID: "b", Message: "x", Class: "p-2"}))
		class, _ := doc.Find("div#b").Attr("class")
		if strings.Contains(class, "p-4") || !strings.Contains(class, "p-2") {
			t.Errorf("expected p-2 to replace p-4, got %q", class)
		}
	})
}

func TestPending(t *testing.T) {
	t.Run("it shows the loading indicator and retries", func(t *testing.T) {
		doc := render(t, Pending(PendingProps{RetryURL: "/mypage"}))
		div := doc.Find("#guard-pending")
		if hx, _ := div.Attr("hx-get"); hx != "/mypage" {
			t.Errorf("expected retry to /mypage, got %q", hx)
		}
		if trig, _ := div.Attr("hx-trigger"); trig != "load delay:1s" {
			t.Errorf("unexpected trigger %q", trig)
		}
		if div.Find("[role='status']").Length() == 0 {
			t.Error("expected a loading indicator")
		}
	})

	t.Run("it does not poll without a retry url", func(t *testing.T) {
		doc := render(t, Pending(PendingProps{}))
		if _, ok := doc.Find("#guard-pending").Attr("hx-get"); ok {
			t.Error("expected no hx-get without a retry url")
		}
	})

	t.Run("tentative renders a blank shell", func(t *testing.T) {
		doc := render(t, Pending(PendingProps{Tentative: true, RetryURL: "/agent"}))
		if doc.Find("#guard-pending [role='status']").Length() != 0 {
			t.Error("tentative pending must not show the indicator")
		}
	})
}

func TestRoleLabel(t *testing.T) {
	cases := map[models.Role]string{
		models.RoleCustomer: "Customer",
		models.RoleAgent:    "Agent",
		models.RoleNone:     "",
	}
	for role, want := range cases {
		if got := RoleLabel(role); got != want {
			t.Errorf("RoleLabel(%s) = %q, want %q", role, got, want)
		}
	}
}

func TestAccount(t *testing.T) {
	doc := render(t, Account(customerSession()))
	if doc.Find("#account-email").Text() != "ana@example.com" {
		t.Errorf("unexpected email %q", doc.Find("#account-email").Text())
	}
	if doc.Find("#account-role").Text() != "Customer" {
		t.Errorf("unexpected role %q", doc.Find("#account-role").Text())
	}
}
