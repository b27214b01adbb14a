package main

import (
	"bufio"
	"fmt"
	"strings"

	"bakery/models"
	"bakery/pkg/bakeryapi"

	"github.com/spf13/cobra"
)

var (
	creds        bakeryapi.Credentials
	registration bakeryapi.Registration
	otpEmail     string
	otpPhone     string
	otpCode      string
	profileEdit  bakeryapi.ProfileUpdate
	passwords    bakeryapi.PasswordChange
	address      models.Address
)

// readPassword falls back to a line on stdin so the password can be piped in
// instead of landing in shell history.
func readPassword(cmd *cobra.Command, current string) (string, error) {
	if current != "" {
		return current, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// report prints the backend's acknowledgement, or def when it sent none.
func report(a bakeryapi.Ack, err error, def string) error {
	if err != nil {
		return explain(err)
	}
	cli.println(accentStyle.Render(orDefault(a.Message, def)))
	return nil
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and remember the session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pw, err := readPassword(cmd, creds.Password)
		if err != nil {
			return err
		}
		c := creds
		c.Password = pw
		a, err := cli.client.Login(cmd.Context(), c)
		return report(a, err, "Logged in.")
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account; a one-time password is sent to verify it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pw, err := readPassword(cmd, registration.Password)
		if err != nil {
			return err
		}
		r := registration
		r.Password = pw
		a, err := cli.client.Register(cmd.Context(), r)
		if err := report(a, err, "Account created."); err != nil {
			return err
		}
		cli.println(mutedStyle.Render("Next: bakery verify --email " + r.Email + " --otp <code>"))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := cli.client.Logout(cmd.Context())
		return report(a, err, "Logged out.")
	},
}

var otpCmd = &cobra.Command{
	Use:   "otp",
	Short: "Send a new one-time password",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := cli.client.SendOTP(cmd.Context(), otpEmail, otpPhone)
		return report(a, err, "OTP sent.")
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify your email with the one-time password",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := cli.client.VerifyOTP(cmd.Context(), otpEmail, otpCode)
		return report(a, err, "Email verified, you can login now.")
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show your profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		u, err := cli.client.Profile(cmd.Context())
		if err != nil {
			return explain(err)
		}
		cli.println(titleStyle.Render(u.Name))
		cli.println(u.Email)
		if u.Phone != "" {
			cli.println(u.Phone)
		}
		return nil
	},
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Change your profile or password",
}

var settingsProfileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Change your name and phone",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := cli.client.UpdateProfile(cmd.Context(), profileEdit)
		return report(a, err, "Profile updated.")
	},
}

var settingsPasswordCmd = &cobra.Command{
	Use:   "password",
	Short: "Change your password",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := cli.client.UpdatePassword(cmd.Context(), passwords)
		return report(a, err, "Password changed.")
	},
}

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Add a delivery address",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := cli.client.AddAddress(cmd.Context(), address)
		return report(a, err, "Address saved.")
	},
}

func init() {
	loginCmd.Flags().StringVar(&creds.Email, "email", "", "account email")
	loginCmd.Flags().StringVar(&creds.Password, "password", "", "password (read from stdin when omitted)")
	_ = loginCmd.MarkFlagRequired("email")

	f := registerCmd.Flags()
	f.StringVar(&registration.Name, "name", "", "your name")
	f.StringVar(&registration.Email, "email", "", "account email")
	f.StringVar(&registration.Phone, "phone", "", "phone number")
	f.StringVar(&registration.Password, "password", "", "password (read from stdin when omitted)")
	f.BoolVar(&registration.Terms, "accept-terms", false, "accept the terms and conditions")
	for _, name := range []string{"name", "email", "phone"} {
		_ = registerCmd.MarkFlagRequired(name)
	}

	otpCmd.Flags().StringVar(&otpEmail, "email", "", "account email")
	otpCmd.Flags().StringVar(&otpPhone, "phone", "", "phone number")
	verifyCmd.Flags().StringVar(&otpEmail, "email", "", "account email")
	verifyCmd.Flags().StringVar(&otpCode, "otp", "", "the code you received")

	settingsProfileCmd.Flags().StringVar(&profileEdit.Name, "name", "", "new name")
	settingsProfileCmd.Flags().StringVar(&profileEdit.Phone, "phone", "", "new phone number")
	settingsPasswordCmd.Flags().StringVar(&passwords.Old, "old", "", "current password")
	settingsPasswordCmd.Flags().StringVar(&passwords.New, "new", "", "new password")
	settingsCmd.AddCommand(settingsProfileCmd, settingsPasswordCmd)

	f = addressCmd.Flags()
	f.StringVar(&address.FlatNo, "flat", "", "flat or house number")
	f.StringVar(&address.BuildingName, "building", "", "building name")
	f.StringVar(&address.Area, "area", "", "area or locality")
	f.StringVar(&address.City, "city", "", "city")
	f.StringVar(&address.Pincode, "pincode", "", "postal code")
	f.StringVar(&address.State, "state", "", "state")

	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, otpCmd, verifyCmd, profileCmd, settingsCmd, addressCmd)
}
