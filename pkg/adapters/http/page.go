package http

import (
	"html/template"
	"net/http"
)

var hostPage = template.Must(template.New("host").Parse(hostHTML))

// GetHostPage serves the embedded client. It renders a playthrough from the
// SSE feed alone, so it doubles as a living example of the event wire format.
func (s *Server) GetHostPage(w http.ResponseWriter, r *http.Request) {
	doc, err := s.loader.Load(r.Context())
	if err != nil {
		http.Error(w, "Failed to load story", http.StatusInternalServerError)
		s.logger.Error("Host page: story load failed", "error", err)
		return
	}

	title := doc.Title
	if title == "" {
		title = doc.Name
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := hostPage.Execute(w, map[string]string{"Title": title}); err != nil {
		s.logger.Error("Host page render failed", "error", err)
	}
}

const hostHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
  body { font-family: system-ui, sans-serif; max-width: 42rem; margin: 2rem auto; padding: 0 1rem; }
  #indicators { display: flex; gap: 4px; margin: 1rem 0; }
  .segment { flex: 1; height: 4px; background: #ddd; border-radius: 2px; overflow: hidden; }
  .segment > div { height: 100%; width: 0; background: #333; }
  #content { white-space: pre-wrap; min-height: 8rem; }
  #controls button { margin-right: .5rem; }
  #restart, #paused { display: none; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div id="indicators"></div>
<h2 id="beat-title"></h2>
<article id="content"></article>
<p id="paused">paused</p>
<div id="controls">
  <button id="back">Back</button>
  <button id="hold">Next (hold to pause)</button>
  <button id="restart">Restart</button>
</div>
<script>
const sid = (crypto.randomUUID && crypto.randomUUID()) || String(Math.random()).slice(2);
const es = new EventSource('/api/events?session_id=' + sid);

// Source reloads arrive on the session-less stream. Loaders without watch
// support answer 501, so just close on error.
const reloads = new EventSource('/api/events');
reloads.onmessage = () => location.reload();
reloads.onerror = () => reloads.close();

function send(command, extra) {
  return fetch('/api/command', {
    method: 'POST',
    headers: {'Content-Type': 'application/json'},
    body: JSON.stringify(Object.assign({session_id: sid, command: command}, extra || {})),
  });
}

let segments = [];
function ensureSegments(n) {
  if (segments.length === n) return;
  const root = document.getElementById('indicators');
  root.innerHTML = '';
  segments = [];
  for (let i = 0; i < n; i++) {
    const seg = document.createElement('div');
    seg.className = 'segment';
    const fill = document.createElement('div');
    seg.appendChild(fill);
    root.appendChild(seg);
    segments.push(fill);
  }
}

es.onmessage = (msg) => {
  const ev = JSON.parse(msg.data);
  switch (ev.type) {
    case 'beat':
      document.getElementById('beat-title').textContent = ev.title || ev.id;
      document.getElementById('content').textContent = ev.content || '';
      break;
    case 'indicators':
      ensureSegments(ev.fills.length);
      ev.fills.forEach((f, i) => { segments[i].style.width = f + '%'; });
      break;
    case 'control':
      if (ev.name === 'restart') {
        document.getElementById('restart').style.display = ev.visible ? 'inline-block' : 'none';
      }
      if (ev.name === 'input') {
        document.getElementById('back').disabled = !ev.visible;
        document.getElementById('hold').disabled = !ev.visible;
      }
      break;
    case 'status':
      document.getElementById('paused').style.display = ev.paused ? 'block' : 'none';
      break;
  }
};

document.getElementById('back').onclick = () => send('retreat');
document.getElementById('restart').onclick = () => send('restart');

// Press-and-hold pauses; a quick tap advances. The release is routed by
// hold duration server side.
const hold = document.getElementById('hold');
hold.addEventListener('pointerdown', () => send('pause_start'));
hold.addEventListener('pointerup', () => send('pause_end'));

document.addEventListener('keydown', (e) => {
  if (e.code === 'ArrowRight') send('advance');
  if (e.code === 'ArrowLeft') send('retreat');
});
</script>
</body>
</html>
`
