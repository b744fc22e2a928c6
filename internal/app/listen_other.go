//go:build !unix

package app

import "syscall"

func reuseAddrControl(network, address string, c syscall.RawConn) error { return nil }
