package pages

import (
	"fmt"
	"strings"
)

// reloadScript reconnects with backoff and reloads the page whenever
// the server broadcasts a change for this slug.
const reloadScript = `<script>
(function(){
  var delay = 500;
  function connect(){
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + %q);
    ws.onmessage = function(ev){
      try {
        var msg = JSON.parse(ev.data);
        if (msg.type === "reload" && (!msg.slug || msg.slug === %q)) location.reload();
      } catch(e) {}
    };
    ws.onopen = function(){ delay = 500; };
    ws.onclose = function(){ setTimeout(connect, delay); delay = Math.min(delay * 2, 10000); };
  }
  connect();
})();
</script>`

// WithReloadScript injects the live-reload client into served markup,
// just before </body> when present, appended otherwise. Stored markup
// is never modified; injection happens on serve only.
func WithReloadScript(htmlText, wsPath, slug string) string {
	script := fmt.Sprintf(reloadScript, wsPath, slug)
	lower := strings.ToLower(htmlText)
	if i := strings.LastIndex(lower, "</body>"); i >= 0 {
		return htmlText[:i] + script + htmlText[i:]
	}
	return htmlText + script
}
