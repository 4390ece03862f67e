package widget

import (
	"github.com/a-h/templ"
	g "maragu.dev/gomponents"
	hx "maragu.dev/gomponents-htmx"
	c "maragu.dev/gomponents/components"
	h "maragu.dev/gomponents/html"

	"github.com/nfrund/relaychat/internal/view"
)

const (
	htmxSrc   = "https://unpkg.com/htmx.org@2.0.4"
	htmxWSSrc = "https://unpkg.com/htmx-ext-ws@2.0.3"
)

// pageConfig is handed to the page script as JSON.
type pageConfig struct {
	Container string `json:"container"`
	Signal    string `json:"signal"`
}

// scrollScript brings the container's last message into view whenever the
// scroll signal is swapped in.
const scrollScript = `(function () {
  var cfg = JSON.parse(document.getElementById("widget-config").textContent);
  document.body.addEventListener("htmx:oobAfterSwap", function (evt) {
    if (!evt.detail.target || evt.detail.target.id !== cfg.signal) return;
    var last = document.getElementById(cfg.container).lastElementChild;
    if (last) last.scrollIntoView({block: "end"});
  });
})();`

const styles = `#message-container{height:60vh;overflow-y:auto;border:1px solid #ccc;padding:.5rem}
.message{margin:.25rem 0}
.self-message{color:#1a5fb4}
.notice:empty{display:none}
.notice{color:#a51d2d}`

// Page renders the chat widget. The socket path is wired through the htmx
// websocket extension; everything after the first paint arrives as
// out-of-band fragments on that socket.
func Page(title, socketPath string) g.Node {
	return c.HTML5(c.HTML5Props{
		Title:    title,
		Language: "en",
		Head: []g.Node{
			h.Script(h.Src(htmxSrc)),
			h.Script(h.Src(htmxWSSrc)),
			h.StyleEl(g.Raw(styles)),
		},
		Body: []g.Node{
			h.Main(
				hx.Ext("ws"),
				g.Attr("ws-connect", socketPath),
				h.H1(g.Text(title)),
				h.Div(h.ID(view.NoticeID), h.Class("notice")),
				h.Div(h.ID(view.ContainerID), view.PlaceholderNode()),
				h.Div(h.ID(view.ScrollSignalID), g.Attr("hidden")),
				h.Form(
					g.Attr("ws-send"),
					view.ComposeInput(h.AutoFocus()),
					h.Button(h.Type("submit"), g.Text("Send")),
				),
			),
			view.TemplNode(templ.JSONScript("widget-config", pageConfig{
				Container: view.ContainerID,
				Signal:    view.ScrollSignalID,
			})),
			h.Script(g.Raw(scrollScript)),
		},
	})
}
