package igdlease

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andres-erbsen/clock"
	"go.uber.org/zap"

	"github.com/fenwick-labs/corelode/upnp/igdclient"
	"github.com/fenwick-labs/corelode/upnp/soap"
	"github.com/fenwick-labs/corelode/upnp/soapclient"
)

func newTestManager(t *testing.T, clk clock.Clock, handler http.HandlerFunc) *Manager {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	soapClient := soapclient.New(ts.Client(), igdclient.SCPDDocument(), ts.URL, igdclient.ServiceType)
	return NewManager(igdclient.New(soapClient), clk, zap.NewNop().Sugar())
}

func TestAddTracksGrantedPort(t *testing.T) {
	clk := clock.NewMock()
	callCount := 0
	m := newTestManager(t, clk, func(w http.ResponseWriter, r *http.Request) {
		callCount++
		if err := soap.EncodeActionResponse(w, igdclient.ServiceType, "AddAnyPortMapping", []soap.Argument{
			{Name: "NewReservedPort", Value: "51413"},
		}); err != nil {
			t.Fatal(err)
		}
	})

	port, err := m.Add(context.Background(), Request{
		Protocol:     igdclient.TCP,
		InternalAddr: "192.168.1.5",
		InternalPort: 51413,
		Description:  "media server",
		Lease:        time.Hour,
	})
	if err != nil {
		t.Fatal(err)
	}
	if port != 51413 {
		t.Fatalf("port = %d, want 51413", port)
	}
	if callCount != 1 {
		t.Fatalf("callCount = %d, want 1", callCount)
	}

	leases := m.Leases()
	if len(leases) != 1 || leases[0].GrantedPort != 51413 {
		t.Fatalf("leases = %+v", leases)
	}
}

func TestRenewLoopRenewsBeforeExpiry(t *testing.T) {
	clk := clock.NewMock()
	renewals := 0
	m := newTestManager(t, clk, func(w http.ResponseWriter, r *http.Request) {
		renewals++
		if err := soap.EncodeActionResponse(w, igdclient.ServiceType, "AddPortMapping", nil); err != nil {
			t.Fatal(err)
		}
	})

	_, err := m.Add(context.Background(), Request{
		Protocol:     igdclient.TCP,
		ExternalPort: 6881,
		InternalAddr: "192.168.1.5",
		InternalPort: 6881,
		Description:  "bt",
		Lease:        time.Minute,
	})
	if err != nil {
		t.Fatal(err)
	}
	if renewals != 1 {
		t.Fatalf("renewals after Add = %d, want 1", renewals)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.RenewLoop(ctx, time.Second)
		close(done)
	}()

	clk.Add(31 * time.Second) // 29s remaining on the lease, inside the 30s margin

	deadline := time.After(2 * time.Second)
	for {
		if len(m.Leases()) == 1 && renewals >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("renewal did not happen in time, renewals=%d", renewals)
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	<-done
}

func TestRemoveDeletesTrackedLease(t *testing.T) {
	clk := clock.NewMock()
	m := newTestManager(t, clk, func(w http.ResponseWriter, r *http.Request) {
		action, err := soap.DecodeAction(r.Body)
		if err != nil {
			t.Fatal(err)
		}
		if err := soap.EncodeActionResponse(w, igdclient.ServiceType, action.Name, nil); err != nil {
			t.Fatal(err)
		}
	})

	_, err := m.Add(context.Background(), Request{
		Protocol:     igdclient.UDP,
		ExternalPort: 5000,
		InternalAddr: "192.168.1.5",
		InternalPort: 5000,
		Lease:        time.Hour,
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := m.Remove(context.Background(), igdclient.UDP, 5000); err != nil {
		t.Fatal(err)
	}
	if leases := m.Leases(); len(leases) != 0 {
		t.Fatalf("leases after Remove = %+v, want none", leases)
	}
}
