// Package grpcx maps caught hardware faults onto the gRPC status model.
//
// A gRPC handler that touches native memory (cgo, mmap, unsafe) can fault
// in ways the Go runtime cannot recover. The interceptor here runs each
// handler inside a protected call, so a hardware fault becomes a regular
// INTERNAL status with structured detail instead of a process crash.
package grpcx

import (
	"context"
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	gcodes "google.golang.org/grpc/codes"
	gstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/anypb"

	"github.com/victoralfred/gotrap/trap"
)

// ErrorDomain identifies this library in ErrorInfo details.
const ErrorDomain = "gotrap.victoralfred.io"

// StatusFromException converts a caught fault into a gRPC status carrying
// an ErrorInfo detail with the portable classification and the raw fault
// data.
func StatusFromException(ex *trap.Exception) *gstatus.Status {
	st := gstatus.New(grpcCode(ex.Code()), ex.Error())

	signo, sicode := ex.Raw()
	info := &errdetails.ErrorInfo{
		Reason: ex.Code().Name(),
		Domain: ErrorDomain,
		Metadata: map[string]string{
			"signo":  fmt.Sprintf("%d", signo),
			"sicode": fmt.Sprintf("%d", sicode),
		},
	}
	if addr := ex.Addr(); addr != 0 {
		info.Metadata["addr"] = fmt.Sprintf("0x%x", uint64(addr))
	}

	detail, err := anypb.New(info)
	if err != nil {
		// The status is still correct without the detail.
		return st
	}

	p := st.Proto()
	p.Details = append(p.Details, detail)
	return gstatus.FromProto(p)
}

// grpcCode maps a fault classification to a transport code. Every
// hardware fault is a server-side defect from the client's point of view.
func grpcCode(c trap.Code) gcodes.Code {
	switch c {
	case trap.CodeStackOverflow:
		return gcodes.ResourceExhausted
	default:
		return gcodes.Internal
	}
}

// UnaryServerInterceptor returns a gRPC UnaryServerInterceptor that runs
// each handler inside a fault-guarded scope. Handlers that complete pass
// their response and error through unchanged; a caught hardware fault is
// returned as a status error built by StatusFromException.
//
// The usual caveats of protected calls apply: a faulted handler unwinds
// like a panicking one, and its partial side effects are unspecified.
func UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		var (
			resp any
			err  error
		)
		if ex := trap.Protect(func() { resp, err = handler(ctx, req) }); ex != nil {
			return nil, StatusFromException(ex).Err()
		}
		return resp, err
	}
}
