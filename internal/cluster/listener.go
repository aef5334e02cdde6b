package cluster

import (
	"fmt"
	"net"
	"os"
)

// firstInheritedFD is the descriptor of the first entry of exec.Cmd.ExtraFiles
const firstInheritedFD = 3

// ListenerFiles duplicates each listener's socket into a file a child
// process can inherit. The order of the result is the order of lns.
func ListenerFiles(lns ...net.Listener) ([]*os.File, error) {
	files := make([]*os.File, 0, len(lns))
	for _, ln := range lns {
		tcp, ok := ln.(*net.TCPListener)
		if !ok {
			closeFiles(files)
			return nil, fmt.Errorf("listener %s is not a TCP listener", ln.Addr())
		}
		f, err := tcp.File()
		if err != nil {
			closeFiles(files)
			return nil, fmt.Errorf("failed to get file of %s: %w", ln.Addr(), err)
		}
		files = append(files, f)
	}
	return files, nil
}

// InheritedListener rebuilds the listener passed at position index of
// ExecSpawner.Files
func InheritedListener(index int, name string) (net.Listener, error) {
	f := os.NewFile(uintptr(firstInheritedFD+index), name)
	if f == nil {
		return nil, fmt.Errorf("no inherited descriptor for %s", name)
	}
	defer f.Close()

	ln, err := net.FileListener(f)
	if err != nil {
		return nil, fmt.Errorf("failed to inherit %s listener: %w", name, err)
	}
	return ln, nil
}

func closeFiles(files []*os.File) {
	for _, f := range files {
		f.Close()
	}
}
