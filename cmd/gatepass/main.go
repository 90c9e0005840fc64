package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/aussiebroadwan/gatepass/internal/pass/app"
	"github.com/aussiebroadwan/gatepass/internal/pass/domain"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	application, err := app.New(app.LoadConfig())
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	defer application.Close()

	ctx := context.Background()

	var runErr error
	switch os.Args[1] {
	case "login":
		runErr = runLogin(ctx, application, os.Args[2:])
	case "issue":
		runErr = runIssue(ctx, application, os.Args[2:])
	case "whoami":
		runErr = runWhoami(ctx, application)
	case "logout":
		runErr = application.Registrar().Logout(ctx)
	default:
		usage()
		os.Exit(2)
	}

	if runErr != nil {
		fmt.Fprintln(os.Stderr, "error:", runErr)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  gatepass login  -phone <number> -password <password>
  gatepass issue  -gate <slot> -visitor <name> [-out <file.png>]
  gatepass whoami
  gatepass logout`)
}

func runLogin(ctx context.Context, application *app.Application, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	phone := fs.String("phone", "", "registered phone number")
	password := fs.String("password", "", "account password")
	_ = fs.Parse(args)

	identity, err := application.Registrar().Login(ctx, *phone, *password)
	if err != nil {
		return err
	}
	fmt.Printf("logged in as %s (%s)\n", identity.Name, identity.HostID)
	return nil
}

func runIssue(ctx context.Context, application *app.Application, args []string) error {
	fs := flag.NewFlagSet("issue", flag.ExitOnError)
	gate := fs.Int("gate", 0, "gate slot number")
	visitor := fs.String("visitor", "", "visitor name")
	out := fs.String("out", "", "write the pass card PNG to this file name")
	_ = fs.Parse(args)

	resident, err := application.Registrar().RestoreSession(ctx)
	if err != nil {
		return err
	}
	if resident == nil {
		return fmt.Errorf("no session, run `gatepass login` first")
	}

	issuer := application.Issuer()
	issuer.Begin(*resident)
	if err := issuer.SelectGate(ctx, domain.GateID(*gate)); err != nil {
		return err
	}
	if err := issuer.SetVisitorName(*visitor); err != nil {
		return err
	}

	pass, err := issuer.Submit(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("pass issued: card %s, gate %d, valid until %s\n",
		pass.CardNumber, int(pass.Gate), pass.FormatExpiry())

	if *out != "" {
		card := issuer.Card()
		if card == nil {
			card, err = application.Exporter().Capture(*pass, *resident)
			if err != nil {
				return fmt.Errorf("render card: %w", err)
			}
		}
		path, err := application.Exporter().Download(card, *out)
		if err != nil {
			return err
		}
		fmt.Println("card written to", path)
	}
	return nil
}

func runWhoami(ctx context.Context, application *app.Application) error {
	resident, err := application.Registrar().RestoreSession(ctx)
	if err != nil {
		return err
	}
	if resident == nil {
		fmt.Println("not logged in")
		return nil
	}
	fmt.Printf("%s (%s), building %d flat %d\n",
		resident.Name, resident.HostID, resident.Building, resident.Flat)
	return nil
}
