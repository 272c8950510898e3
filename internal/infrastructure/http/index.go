package http

import "net/http"

// handleIndex renders the chat UI. The page creates a session on load and
// streams answers over SSE.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML))
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>docchat</title>
    <style>
        body { font-family: system-ui, sans-serif; max-width: 760px; margin: 2rem auto; padding: 0 1rem; }
        #chat-container { height: 60vh; overflow-y: auto; border: 1px solid #ddd; padding: 1rem; border-radius: 6px; }
        .message { margin: 0.5rem 0; white-space: pre-wrap; }
        .user { font-weight: 600; }
        .error { color: #b00020; }
        form { display: flex; gap: 0.5rem; margin-top: 0.75rem; }
        #query-input { flex: 1; }
    </style>
</head>
<body>
    <header>
        <h1>docchat</h1>
        <p id="doc-status">No document loaded. Plain chat mode.</p>
    </header>

    <form id="upload-form" onsubmit="uploadDoc(event)">
        <input type="file" id="file-input" accept=".pdf,.txt,.md,.markdown" required>
        <button type="submit">Load</button>
    </form>

    <div id="chat-container">
        <div id="messages"></div>
    </div>

    <form id="query-form" onsubmit="sendQuery(event)">
        <input type="text" id="query-input" placeholder="Ask about your document..." autocomplete="off" required>
        <button type="submit" id="send-btn">Send</button>
        <button type="button" id="stop-btn" onclick="stopAnswer()" disabled>Stop</button>
    </form>

    <script>
        let sessionId = null;
        let eventSource = null;

        fetch('/api/sessions', { method: 'POST' })
            .then(r => r.json())
            .then(s => { sessionId = s.id; });

        function uploadDoc(e) {
            e.preventDefault();
            const body = new FormData();
            body.append('file', document.getElementById('file-input').files[0]);
            const status = document.getElementById('doc-status');
            status.textContent = 'Embedding...';
            fetch('/api/sessions/' + sessionId + '/document', { method: 'POST', body: body })
                .then(r => r.json())
                .then(s => {
                    if (s.error) {
                        status.innerHTML = '<span class="error">' + escapeHtml(s.error) + '</span>';
                        return;
                    }
                    status.textContent = s.document.name + ' (' + s.document.paragraphs + ' paragraphs)';
                });
        }

        function sendQuery(e) {
            e.preventDefault();
            const input = document.getElementById('query-input');
            const messages = document.getElementById('messages');
            const query = input.value.trim();
            if (!query || eventSource) return;

            messages.innerHTML += '<div class="message user">' + escapeHtml(query) + '</div>';
            const responseId = 'response-' + Date.now();
            messages.innerHTML += '<div class="message assistant" id="' + responseId + '"></div>';
            input.value = '';

            const container = document.getElementById('chat-container');
            const responseEl = document.getElementById(responseId);
            let fullResponse = '';
            document.getElementById('stop-btn').disabled = false;

            eventSource = new EventSource('/api/sessions/' + sessionId + '/chat/stream?q=' + encodeURIComponent(query));
            eventSource.onmessage = function(event) {
                const data = JSON.parse(event.data);
                if (data.done) {
                    if (data.error) {
                        responseEl.innerHTML = escapeHtml(fullResponse) + '<div class="error">' + escapeHtml(data.error) + '</div>';
                    }
                    stopAnswer();
                } else if (data.content) {
                    fullResponse += data.content;
                    responseEl.textContent = fullResponse;
                    container.scrollTop = container.scrollHeight;
                }
            };
            eventSource.onerror = function() {
                if (!fullResponse) {
                    responseEl.innerHTML = '<span class="error">Connection error</span>';
                }
                stopAnswer();
            };
        }

        function stopAnswer() {
            if (eventSource) {
                eventSource.close();
                eventSource = null;
            }
            document.getElementById('stop-btn').disabled = true;
        }

        function escapeHtml(text) {
            const div = document.createElement('div');
            div.textContent = text;
            return div.innerHTML;
        }
    </script>
</body>
</html>`
