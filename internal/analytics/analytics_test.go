// internal/analytics/analytics_test.go
package analytics

import (
	"encoding/base64"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func encode(t *testing.T, payload string) string {
	t.Helper()
	return base64.StdEncoding.EncodeToString([]byte(payload))
}

func TestFromBase64(t *testing.T) {
	e, err := FromBase64(encode(t, `{"closestTimezone":-5,"browser":"firefox","os":"linux","device":"desktop","visitStart":1700000000000}`))
	require.NoError(t, err)
	require.Equal(t, -5, e.ClosestTimezone)
	require.Equal(t, "firefox", e.Browser)
	require.Equal(t, int64(1700000000000), e.VisitStart)

	_, err = FromBase64("not base64!!!")
	require.Error(t, err)

	_, err = FromBase64(encode(t, "not json"))
	require.Error(t, err)
}

func TestFinishAfter(t *testing.T) {
	e := &Entry{VisitStart: 1000}
	e.FinishAfter("250")
	require.Equal(t, int64(1250), e.VisitEnd)

	e = &Entry{VisitStart: 1000}
	e.FinishAfter("junk")
	require.NotZero(t, e.VisitEnd, "unparseable duration falls back to wall clock")
}

func TestRecordAndSnapshot(t *testing.T) {
	svc := NewService(nil, logrus.New())

	e := &Entry{Browser: "chrome"}
	e.Define("lobby", map[string]any{"gamemode": "ffa"})
	svc.Record(e)
	svc.Record(nil)

	records := svc.Snapshot()
	require.Len(t, records, 1)
	require.Equal(t, "lobby", records[0].Kind)
}

func TestRelayedVisit(t *testing.T) {
	svc := NewService(nil, logrus.New())

	svc.RelayedVisit(encode(t, `{"visitStart":500,"browser":"safari"}`), "1500", "maze", 2)

	records := svc.Snapshot()
	require.Len(t, records, 1)
	require.Equal(t, "client", records[0].Kind)
	require.Equal(t, int64(2000), records[0].VisitEnd)
	require.Equal(t, "maze", records[0].Detail["gamemode"])

	// Bad payloads are dropped without error.
	svc.RelayedVisit("%%%", "10", "maze", 2)
	require.Len(t, svc.Snapshot(), 1)
}
