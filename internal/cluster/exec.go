package cluster

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
)

// EnvWorker carries the worker slot into a spawned process
const EnvWorker = "TODOAPI_WORKER"

// ExecSpawner re-executes a binary as a worker, handing it the listening
// sockets as inherited descriptors starting at fd 3. When Lifeline is set
// its descriptor follows the listeners and is announced in EnvLifelineFD.
type ExecSpawner struct {
	Path     string
	Args     []string
	Files    []*os.File
	Lifeline *os.File
}

// Spawn implements Spawner
func (e *ExecSpawner) Spawn(slot int) (Process, error) {
	cmd := exec.Command(e.Path, e.Args...)
	cmd.Env = append(os.Environ(), EnvWorker+"="+strconv.Itoa(slot))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.ExtraFiles = append([]*os.File(nil), e.Files...)
	if e.Lifeline != nil {
		fd := firstInheritedFD + len(cmd.ExtraFiles)
		cmd.ExtraFiles = append(cmd.ExtraFiles, e.Lifeline)
		cmd.Env = append(cmd.Env, EnvLifelineFD+"="+strconv.Itoa(fd))
	}
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", e.Path, err)
	}
	return &execProcess{cmd: cmd}, nil
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p *execProcess) Pid() int {
	return p.cmd.Process.Pid
}

func (p *execProcess) Wait() error {
	return p.cmd.Wait()
}

func (p *execProcess) Signal(sig os.Signal) error {
	return p.cmd.Process.Signal(sig)
}

// WorkerSlot reports whether this process is a worker and which slot it fills
func WorkerSlot() (int, bool, error) {
	return workerSlot(os.Getenv)
}

func workerSlot(getenv func(string) string) (int, bool, error) {
	value := getenv(EnvWorker)
	if value == "" {
		return 0, false, nil
	}
	slot, err := strconv.Atoi(value)
	if err != nil || slot < 0 {
		return 0, false, fmt.Errorf("invalid %s: %q", EnvWorker, value)
	}
	return slot, true, nil
}
