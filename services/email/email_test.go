package emailsvc

import (
	"bytes"
	"net/http"
	"net/mail"
	"strings"
	"sync"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classroom-curator/planner/core"
)

var testConf = &core.Config{
	AppName:  "Curator",
	TestMode: true,
	Email:    core.EmailConfig{DefaultFrom: "Curator <noreply@curator.test>", SendgridApiKey: "SG.test"},
}

func newMessage() *core.EmailMessage {
	msg := &core.EmailMessage{
		To:      []mail.Address{{Name: "Ada", Address: "ada@school.test"}},
		Subject: "Year plan",
		BodyStr: "hello",
	}
	_ = msg.Attach(strings.NewReader("BEGIN:VCALENDAR"), "plan.ics", "text/calendar")
	return msg
}

func TestConsoleService_Write(t *testing.T) {
	var out bytes.Buffer
	svc := newConsoleService(testConf, core.NopLogger{}, &out)

	sent, err := svc.sendMessage(newMessage())
	require.NoError(t, err)
	assert.True(t, sent)

	body := out.String()
	assert.Contains(t, body, "From: \"Curator\" <noreply@curator.test>")
	assert.Contains(t, body, "Subject: [Curator] Year plan")
	assert.Contains(t, body, "To: \"Ada\" <ada@school.test>")
	assert.Contains(t, body, "multipart/mixed")
	assert.Contains(t, body, "hello")
	assert.Contains(t, body, "filename=plan.ics")
}

func TestConsoleServiceMock(t *testing.T) {
	svc := NewConsoleServiceMock(testConf)

	noRecipient := newMessage()
	noRecipient.To = nil
	svc.SendMessages(newMessage(), noRecipient)

	sent := svc.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "hello", sent[0].TextContent)
	assert.Len(t, sent[0].Attachments, 1)

	svc.Reset()
	assert.Empty(t, svc.Sent())
}

func TestSendgridService(t *testing.T) {
	var (
		mu   sync.Mutex
		reqs []rest.Request
		done = make(chan struct{}, 1)
	)
	svc := NewSendgridService(testConf, core.NopLogger{}).(*sendgridService)
	svc.apiFunc = func(req rest.Request) (*rest.Response, error) {
		mu.Lock()
		reqs = append(reqs, req)
		mu.Unlock()
		done <- struct{}{}
		return &rest.Response{StatusCode: http.StatusAccepted}, nil
	}

	svc.SendMessages(newMessage())
	<-done

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, reqs, 1)
	req := reqs[0]
	assert.Equal(t, rest.Method(http.MethodPost), req.Method)
	assert.Equal(t, host+endpoint, req.BaseURL)
	assert.Equal(t, "Bearer SG.test", req.Headers["Authorization"])

	body := string(req.Body)
	assert.Contains(t, body, `"subject":"[Curator] Year plan"`)
	assert.Contains(t, body, `"email":"ada@school.test"`)
	assert.Contains(t, body, `"filename":"plan.ics"`)
	assert.NotContains(t, body, `"text/html"`)
}
