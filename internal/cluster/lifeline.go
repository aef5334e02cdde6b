package cluster

import (
	"fmt"
	"io"
	"os"
	"strconv"
)

// EnvLifelineFD names the inherited descriptor a worker watches for its
// supervisor going away
const EnvLifelineFD = "TODOAPI_LIFELINE_FD"

// NewLifeline creates the pipe that ties workers to the supervisor. Workers
// inherit the read end. The supervisor keeps the write end open for its
// whole life and never writes to it, so workers read EOF only once the
// supervisor process is gone, however it died.
func NewLifeline() (r, w *os.File, err error) {
	r, w, err = os.Pipe()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create lifeline: %w", err)
	}
	return r, w, nil
}

// SupervisorGone returns a channel closed when the supervisor exits. It
// returns a nil channel when the process was started without a lifeline.
func SupervisorGone() (<-chan struct{}, error) {
	return supervisorGone(os.Getenv)
}

func supervisorGone(getenv func(string) string) (<-chan struct{}, error) {
	value := getenv(EnvLifelineFD)
	if value == "" {
		return nil, nil
	}
	fd, err := strconv.Atoi(value)
	if err != nil || fd < firstInheritedFD {
		return nil, fmt.Errorf("invalid %s: %q", EnvLifelineFD, value)
	}

	f := os.NewFile(uintptr(fd), "lifeline")
	if f == nil {
		return nil, fmt.Errorf("no inherited descriptor %d for lifeline", fd)
	}
	return watchLifeline(f), nil
}

// watchLifeline drains f in the background and closes the returned channel
// at EOF or on any read error
func watchLifeline(f *os.File) <-chan struct{} {
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		defer f.Close()
		io.Copy(io.Discard, f)
	}()
	return gone
}
