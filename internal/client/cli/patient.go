package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/pvault/internal/client/models"
	"github.com/dmitrijs2005/pvault/internal/client/verification"
	"github.com/dmitrijs2005/pvault/internal/common"
)

const patientHelp = "Patient commands: email [address], otp [code], back, list, download <id>..., again, exit"

// Patient runs a nested prompt over one fresh verification flow. Leaving
// the prompt closes the flow, so a result that arrives afterwards is
// dropped.
func (a *App) Patient(ctx context.Context) error {
	flow := a.newFlow()
	defer func() {
		flow.Close()
		a.route = common.RouteHome
	}()

	a.say(patientHelp)
	for {
		st := flow.State()
		a.say("patient (%s) > ", st.Step)
		line, err := readLine(a.reader)
		if err != nil {
			return nil
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			a.say(patientHelp)
		case "email":
			email, err := a.argOrPrompt(args, "Enter your email")
			if err != nil {
				return nil
			}
			a.reportFlowError(flow.RequestOtp(ctx, email))
		case "otp":
			code, err := a.argOrPrompt(args, "Enter the code sent to "+st.Email)
			if err != nil {
				return nil
			}
			if err := flow.VerifyOtp(ctx, st.Email, code); err == nil {
				a.printResults(flow.State().Results)
			} else {
				a.reportFlowError(err)
			}
		case "back":
			a.reportFlowError(flow.Back())
		case "list":
			if st.Step != verification.Verified {
				a.say("Verify your email first")
				continue
			}
			a.printResults(st.Results)
		case "download":
			if len(args) == 0 {
				a.say(usageDownload)
				continue
			}
			for _, id := range args {
				_, err := flow.Download(ctx, models.ID(id), "")
				a.reportFlowError(err)
			}
		case "again":
			a.reportFlowError(flow.Reset())
		case "exit", "quit":
			return nil
		default:
			a.say("Unknown command: %s", cmd)
		}
	}
}

func (a *App) argOrPrompt(args []string, prompt string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	return getSimpleText(a.reader, prompt, a.out)
}

func (a *App) printResults(list []models.PrescriptionSummary) {
	if len(list) == 0 {
		a.say(msgNoPrescriptions)
		return
	}
	a.outMu.Lock()
	defer a.outMu.Unlock()
	printPatientPrescriptions(a.out, list)
}

// reportFlowError prints the errors the flow does not already announce
// through its notifier.
func (a *App) reportFlowError(err error) {
	switch {
	case err == nil:
	case errors.Is(err, verification.ErrWrongStep):
		a.failure("That is not available at this step")
	case errors.Is(err, verification.ErrBusy),
		errors.Is(err, verification.ErrEmailMismatch),
		errors.Is(err, verification.ErrUnknownArtifact),
		errors.Is(err, verification.ErrClosed):
		a.failure(err.Error())
	}
}
