package server

import "net/http"

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}

const indexHTML = `<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>dogcmd console</title>
  <style>
    body { font-family: "Segoe UI", sans-serif; margin: 0; background: linear-gradient(145deg,#f7fafc,#e9eef7); color: #1f2937; }
    .wrap { max-width: 900px; margin: 0 auto; padding: 20px; }
    .panel { background: #fff; border-radius: 12px; box-shadow: 0 8px 30px rgba(15,23,42,.08); padding: 16px; }
    #log { min-height: 320px; max-height: 60vh; overflow: auto; white-space: pre-wrap; border: 1px solid #d1d5db; border-radius: 8px; padding: 12px; background: #f9fafb; font-family: monospace; }
    .row { display: flex; gap: 8px; margin-top: 10px; }
    input { flex: 1; padding: 10px; border: 1px solid #cbd5e1; border-radius: 8px; }
    button { padding: 10px 16px; border: 0; border-radius: 8px; background: #0f766e; color: #fff; cursor: pointer; }
    button:hover { background: #0d9488; }
  </style>
</head>
<body>
  <div class="wrap">
    <div class="panel">
      <h2>dogcmd console</h2>
      <div id="log"></div>
      <div class="row">
        <input id="msg" placeholder="sit for 3 seconds then say good boy" />
        <button id="send">Route</button>
      </div>
    </div>
  </div>
  <script>
    const log = document.getElementById('log');
    const msg = document.getElementById('msg');
    const send = document.getElementById('send');
    const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws');
    const append = (text) => { log.textContent += text + '\n\n'; log.scrollTop = log.scrollHeight; };
    ws.onmessage = (ev) => {
      const reply = JSON.parse(ev.data);
      if (reply.type === 'error') { append('error: ' + reply.error); return; }
      const r = reply.result;
      append((r.cache_hit ? '[hit] ' : '[miss] ') + r.key + '\n' + JSON.stringify(r.actions, null, 2));
    };
    ws.onclose = () => append('(disconnected)');
    function sendMessage() {
      const text = msg.value.trim();
      if (!text || ws.readyState !== WebSocket.OPEN) return;
      append('> ' + text);
      msg.value = '';
      ws.send(JSON.stringify({ text }));
    }
    send.addEventListener('click', sendMessage);
    msg.addEventListener('keydown', (e) => { if (e.key === 'Enter') sendMessage(); });
  </script>
</body>
</html>`
