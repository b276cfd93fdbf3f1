package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Krish-Depani/auth-session-client/client"
	"github.com/Krish-Depani/auth-session-client/models"
)

const usage = `commands:
  signup <name> <email>     create an account
  login <email>             log in (prompts for password)
  whoami                    show the in-memory session
  profile                   fetch the profile
  set <field> <value>       update one profile field
  sessions                  list logged-in devices
  revoke <id>...            log out the given devices
  revoke-others             log out every other device
  renew                     renew the access token now
  logout                    log out this device
  quit                      exit`

type shell struct {
	client   *client.Client
	out      io.Writer
	password func(prompt string) (string, error)

	// last listing, used by revoke-others
	listed []models.DeviceSession
}

func (sh *shell) run(ctx context.Context, in *bufio.Scanner) {
	fmt.Fprintln(sh.out, usage)
	for {
		fmt.Fprint(sh.out, "> ")
		if !in.Scan() {
			return
		}
		line := strings.TrimSpace(in.Text())
		if line == "quit" || line == "exit" {
			return
		}
		if err := sh.exec(ctx, line); err != nil {
			fmt.Fprintln(sh.out, "error:", err)
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (sh *shell) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "help":
		fmt.Fprintln(sh.out, usage)
	case "signup":
		if len(args) < 2 {
			return errors.New("usage: signup <name> <email>")
		}
		pw, err := sh.password("password: ")
		if err != nil {
			return err
		}
		if err := sh.client.Signup(ctx, strings.Join(args[:len(args)-1], " "), args[len(args)-1], pw); err != nil {
			return err
		}
		fmt.Fprintln(sh.out, "signed up, now log in")
	case "login":
		if len(args) != 1 {
			return errors.New("usage: login <email>")
		}
		pw, err := sh.password("password: ")
		if err != nil {
			return err
		}
		s, err := sh.client.Login(ctx, args[0], pw)
		if err != nil {
			return err
		}
		fmt.Fprintf(sh.out, "logged in as %s (%s)\n", s.DisplayName, s.UserID)
	case "whoami":
		s := sh.client.Store().Current()
		if !s.Authenticated() {
			fmt.Fprintln(sh.out, s.Status)
			return nil
		}
		fmt.Fprintf(sh.out, "%s (%s) %s\n", s.DisplayName, s.UserID, s.Status)
	case "profile":
		p, err := sh.client.Profile(ctx)
		if err != nil {
			return err
		}
		printProfile(sh.out, p)
	case "set":
		if len(args) < 2 {
			return errors.New("usage: set <field> <value>")
		}
		patch, err := profilePatch(args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		p, err := sh.client.UpdateProfile(ctx, patch)
		if err != nil {
			return err
		}
		printProfile(sh.out, p)
	case "sessions":
		sessions, err := sh.client.Sessions().List(ctx)
		if err != nil {
			return err
		}
		sh.listed = sessions
		printSessions(sh.out, sessions)
	case "revoke":
		if len(args) == 0 {
			return errors.New("usage: revoke <id>...")
		}
		if err := sh.client.Sessions().Revoke(ctx, args); err != nil {
			return err
		}
		fmt.Fprintf(sh.out, "revoked %d session(s)\n", len(args))
	case "revoke-others":
		if sh.listed == nil {
			sessions, err := sh.client.Sessions().List(ctx)
			if err != nil {
				return err
			}
			sh.listed = sessions
		}
		ids, err := sh.client.Sessions().RevokeOthers(ctx, sh.listed)
		if err != nil {
			return err
		}
		sh.listed = nil
		fmt.Fprintf(sh.out, "revoked %d other session(s)\n", len(ids))
	case "renew":
		if _, err := sh.client.Coordinator().Renew(ctx); err != nil {
			return err
		}
		fmt.Fprintln(sh.out, "renewed")
	case "logout":
		err := sh.client.Logout(ctx)
		sh.listed = nil
		fmt.Fprintln(sh.out, "logged out")
		return err
	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}
	return nil
}

func profilePatch(field, value string) (models.ProfilePatch, error) {
	var p models.ProfilePatch
	switch field {
	case "name":
		p.Name = &value
	case "email":
		p.Email = &value
	case "dob":
		p.DOB = &value
	case "sex":
		p.Sex = &value
	case "bloodGroup":
		p.BloodGroup = &value
	case "activityLevel":
		p.ActivityLevel = &value
	case "height", "weight":
		var n float64
		if _, err := fmt.Sscan(value, &n); err != nil {
			return p, fmt.Errorf("%s must be a number", field)
		}
		if field == "height" {
			p.Height = &n
		} else {
			p.Weight = &n
		}
	default:
		return p, fmt.Errorf("unknown profile field %q", field)
	}
	return p, nil
}

func printProfile(w io.Writer, p models.Profile) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "name\t%s\n", p.Name)
	fmt.Fprintf(tw, "email\t%s\n", p.Email)
	fmt.Fprintf(tw, "dob\t%s\n", p.DOB)
	fmt.Fprintf(tw, "sex\t%s\n", p.Sex)
	if p.Height != nil {
		fmt.Fprintf(tw, "height\t%g cm\n", *p.Height)
	}
	if p.Weight != nil {
		fmt.Fprintf(tw, "weight\t%g kg\n", *p.Weight)
	}
	fmt.Fprintf(tw, "bloodGroup\t%s\n", p.BloodGroup)
	fmt.Fprintf(tw, "activityLevel\t%s\n", p.ActivityLevel)
	if !p.Complete() {
		fmt.Fprintln(tw, "\t(profile incomplete)")
	}
	tw.Flush()
}

func printSessions(w io.Writer, sessions []models.DeviceSession) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDEVICE\tLOCATION\tIP\tFIRST LOGIN\tLAST USED\t")
	for _, s := range sessions {
		id := s.ID
		if s.IsCurrent {
			id += " (this device)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			id, s.Device, s.Location, s.IPAddress,
			s.CreatedAt.Local().Format(time.DateTime), s.LastUsedAt.Local().Format(time.DateTime))
	}
	tw.Flush()
}
