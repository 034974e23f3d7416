package uevent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/zoobzio/hotplug"
)

// recvTimeout bounds each blocking read so cancellation is observed.
const recvTimeout = 250 * time.Millisecond

// kernelGroup is the multicast group the kernel broadcasts uevents on.
const kernelGroup = 1

// Watch opens the netlink socket and returns a channel of matching events.
// The channel closes when ctx is canceled, Close is called or the socket
// fails; Err reports the failure.
func (s *Source) Watch(ctx context.Context) (<-chan hotplug.Event, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.NETLINK_KOBJECT_UEVENT)
	if err != nil {
		return nil, fmt.Errorf("failed to open uevent socket: %w", err)
	}

	addr := &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Groups: kernelGroup}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to bind uevent socket: %w", err)
	}

	tv := unix.NsecToTimeval(recvTimeout.Nanoseconds())
	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to set receive timeout: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.mu.Lock()
	s.cancel, s.done = cancel, done
	s.mu.Unlock()

	out := make(chan hotplug.Event, 16)

	go func() {
		defer close(done)
		defer close(out)
		defer unix.Close(fd)

		buf := make([]byte, s.bufSize)
		for {
			if ctx.Err() != nil {
				return
			}

			n, _, err := unix.Recvfrom(fd, buf, 0)
			if err != nil {
				if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
					continue
				}
				// Kernel dropped messages; the next change event resyncs.
				if errors.Is(err, unix.ENOBUFS) {
					continue
				}
				s.fail(fmt.Errorf("uevent receive: %w", err))
				return
			}

			e, ok := Parse(buf[:n])
			if !ok || !s.Accept(e) {
				continue
			}

			select {
			case out <- e:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
