package socket

import (
	"errors"
	"net"
	"os"
	"runtime"
	"syscall"
)

const listenAttempts = 42
const udpBufferSize = 16 * 1024 * 1024

// NewUdpMux opens a UDP socket for the single-port WebRTC mode,
// rolling to the next free port if the given one is busy.
func NewUdpMux(port int) (*net.UDPConn, error) {
	conn, err := listenUdp(port)
	if err == nil {
		return conn, nil
	}
	if IsPortBusyError(err) {
		for i := port + 1; i < port+listenAttempts; i++ {
			if conn, err = listenUdp(i); err == nil {
				return conn, nil
			}
		}
		return nil, errors.New("no available ports")
	}
	return nil, err
}

func listenUdp(port int) (*net.UDPConn, error) {
	l, err := net.ListenUDP("udp", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, err
	}
	_ = l.SetReadBuffer(udpBufferSize)
	_ = l.SetWriteBuffer(udpBufferSize)
	return l, nil
}

// IsPortBusyError tests if the given error is one of
// the port busy errors.
func IsPortBusyError(err error) bool {
	if err == nil {
		return false
	}
	var eOsSyscall *os.SyscallError
	if !errors.As(err, &eOsSyscall) {
		return false
	}
	var errErrno syscall.Errno
	if !errors.As(eOsSyscall, &errErrno) {
		return false
	}
	if errErrno == syscall.EADDRINUSE {
		return true
	}
	const WSAEADDRINUSE = 10048
	if runtime.GOOS == "windows" && errErrno == WSAEADDRINUSE {
		return true
	}
	return false
}
