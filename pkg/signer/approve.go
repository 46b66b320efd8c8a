package signer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"miao-swap/pkg/types"
)

// Approver asks the wallet holder whether a payload may be signed.
type Approver interface {
	Approve(ctx context.Context, payload types.SignablePayload) (bool, error)
}

// ApproverFunc adapts a function to Approver.
type ApproverFunc func(ctx context.Context, payload types.SignablePayload) (bool, error)

func (f ApproverFunc) Approve(ctx context.Context, payload types.SignablePayload) (bool, error) {
	return f(ctx, payload)
}

// AutoApprove approves every payload. Used with --yes.
var AutoApprove = ApproverFunc(func(context.Context, types.SignablePayload) (bool, error) {
	return true, nil
})

// Approving asks Approver before delegating to the wrapped gateway. A refusal
// is reported as UserRejected.
type Approving struct {
	Gateway  Gateway
	Approver Approver
}

func (a *Approving) SignAndSubmit(ctx context.Context, payload types.SignablePayload) (types.SubmissionID, error) {
	ok, err := a.Approver.Approve(ctx, payload)
	if err != nil {
		return "", types.NewError(types.KindSignerError, err, "approval prompt failed")
	}
	if !ok {
		return "", types.NewError(types.KindUserRejected, nil, "request rejected in wallet")
	}
	return a.Gateway.SignAndSubmit(ctx, payload)
}

// PublicKey forwards to the wrapped gateway when it knows its address.
func (a *Approving) PublicKey() string {
	if pk, ok := a.Gateway.(PublicKeyer); ok {
		return pk.PublicKey()
	}
	return ""
}

// Prompt is a terminal y/N approver.
type Prompt struct {
	In       io.Reader
	Out      io.Writer
	Question string

	reader *bufio.Reader
}

func (p *Prompt) Approve(_ context.Context, _ types.SignablePayload) (bool, error) {
	question := p.Question
	if question == "" {
		question = "Sign and send this swap?"
	}
	return p.Ask(question)
}

// Ask prints question and reads a y/N answer. Anything but y or yes is a no.
func (p *Prompt) Ask(question string) (bool, error) {
	if p.reader == nil {
		p.reader = bufio.NewReader(p.In)
	}
	fmt.Fprintf(p.Out, "\n%s (y/N): ", question)

	response, err := p.reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes", nil
}
