package logsvc

import (
	"bytes"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/classroom-curator/planner/core"
)

func TestRollbarLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewRollbarLogger(log.New(&buf, "TEST : ", 0), &core.Config{Env: "TEST", TestMode: true})

	t.Run("prepare drops the owner", func(t *testing.T) {
		err := errors.New("boom")
		extra := map[string]interface{}{"plan": "p1"}
		args := l.prepare("msg", []interface{}{err, core.Owner{ID: "u1", Email: "a@b.c"}, extra, core.Owner{ID: "u2"}})
		assert.Equal(t, []interface{}{"msg", err, extra}, args)
	})

	t.Run("mirrors to std logger", func(t *testing.T) {
		buf.Reset()
		l.Warn("fetching holidays failed", errors.New("timeout"))
		out := buf.String()
		assert.Contains(t, out, "TEST : WARN: fetching holidays failed")
		assert.Contains(t, out, "timeout")
	})
}
