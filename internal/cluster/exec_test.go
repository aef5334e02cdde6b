//go:build linux

package cluster

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"syscall"
	"testing"
	"time"
)

// envHelper marks a test binary started as a worker by the tests below
const envHelper = "TODOAPI_TEST_HELPER"

// TestHelperWorker is the worker body of the re-executed test binary. It
// does nothing in a normal test run.
func TestHelperWorker(t *testing.T) {
	if os.Getenv(envHelper) != "1" {
		return
	}

	slot, isWorker, err := WorkerSlot()
	if err != nil || !isWorker {
		fmt.Fprintf(os.Stderr, "worker slot: %v %v\n", isWorker, err)
		os.Exit(2)
	}
	gone, err := SupervisorGone()
	if err != nil {
		fmt.Fprintf(os.Stderr, "lifeline: %v\n", err)
		os.Exit(2)
	}
	ln, err := InheritedListener(0, "http")
	if err != nil {
		fmt.Fprintf(os.Stderr, "listener: %v\n", err)
		os.Exit(2)
	}

	go http.Serve(ln, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "%d %d", slot, os.Getpid())
	}))

	// A nil channel blocks until the process is killed
	<-gone
}

func helperSpawner(t *testing.T, files []*os.File, lifeline *os.File) *ExecSpawner {
	t.Helper()
	t.Setenv(envHelper, "1")
	return &ExecSpawner{
		Path:     os.Args[0],
		Args:     []string{"-test.run=^TestHelperWorker$"},
		Files:    files,
		Lifeline: lifeline,
	}
}

// sharedListener opens a listener and the files a worker inherits
func sharedListener(t *testing.T) (net.Listener, []*os.File) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	files, err := ListenerFiles(ln)
	if err != nil {
		t.Fatalf("ListenerFiles: %v", err)
	}
	t.Cleanup(func() { closeFiles(files) })
	return ln, files
}

func newTestLifeline(t *testing.T) (*os.File, *os.File) {
	t.Helper()
	r, w, err := NewLifeline()
	if err != nil {
		t.Fatalf("NewLifeline: %v", err)
	}
	t.Cleanup(func() {
		r.Close()
		w.Close()
	})
	return r, w
}

// askWorker returns the slot and pid of the worker that answered on addr
func askWorker(t *testing.T, addr string) (int, int) {
	t.Helper()

	client := &http.Client{
		Timeout:   10 * time.Second,
		Transport: &http.Transport{DisableKeepAlives: true},
	}
	resp, err := client.Get("http://" + addr + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	var slot, pid int
	if _, err := fmt.Sscanf(string(body), "%d %d", &slot, &pid); err != nil {
		t.Fatalf("unexpected reply %q: %v", body, err)
	}
	return slot, pid
}

// recordingSpawner reports every process it starts
type recordingSpawner struct {
	next  Spawner
	procs chan Process
}

func (s *recordingSpawner) Spawn(slot int) (Process, error) {
	p, err := s.next.Spawn(slot)
	if err == nil {
		s.procs <- p
	}
	return p, err
}

func waitProcess(t *testing.T, procs <-chan Process) Process {
	t.Helper()
	select {
	case p := <-procs:
		t.Cleanup(func() { p.Signal(syscall.SIGKILL) })
		return p
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for worker process")
		return nil
	}
}

func TestExecSpawner_WorkerServesInheritedListener(t *testing.T) {
	ln, files := sharedListener(t)
	r, _ := newTestLifeline(t)

	spawner := &recordingSpawner{next: helperSpawner(t, files, r), procs: make(chan Process, 8)}
	sup, _ := newTestSupervisor(1, spawner)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()

	first := waitProcess(t, spawner.procs)
	slot, pid := askWorker(t, ln.Addr().String())
	if slot != 0 || pid != first.Pid() {
		t.Fatalf("reply from slot %d pid %d, want slot 0 pid %d", slot, pid, first.Pid())
	}

	if err := first.Signal(syscall.SIGKILL); err != nil {
		t.Fatalf("kill worker: %v", err)
	}

	second := waitProcess(t, spawner.procs)
	if second.Pid() == first.Pid() {
		t.Fatalf("respawned worker has the old pid %d", first.Pid())
	}
	slot, pid = askWorker(t, ln.Addr().String())
	if slot != 0 || pid != second.Pid() {
		t.Errorf("reply from slot %d pid %d, want slot 0 pid %d", slot, pid, second.Pid())
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestExecSpawner_WorkerExitsWhenSupervisorGone(t *testing.T) {
	ln, files := sharedListener(t)
	r, w := newTestLifeline(t)

	proc, err := helperSpawner(t, files, r).Spawn(0)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	t.Cleanup(func() { proc.Signal(syscall.SIGKILL) })

	if _, pid := askWorker(t, ln.Addr().String()); pid != proc.Pid() {
		t.Fatalf("reply from pid %d, want %d", pid, proc.Pid())
	}

	pgid, err := syscall.Getpgid(proc.Pid())
	if err != nil {
		t.Fatalf("Getpgid: %v", err)
	}
	if pgid != proc.Pid() {
		t.Errorf("worker pgid = %d, want its own group %d", pgid, proc.Pid())
	}

	// The kernel closes the write end when the supervisor dies
	w.Close()

	exited := make(chan error, 1)
	go func() { exited <- proc.Wait() }()

	select {
	case err := <-exited:
		if err != nil {
			t.Errorf("worker exit: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("worker outlived its supervisor")
	}
}
