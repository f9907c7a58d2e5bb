package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"ehgrab/pkg/auth"
	"ehgrab/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage member credentials",
	Long: `Manage stored member credentials securely.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (backward compatibility)

Never share your credentials or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [member-id]",
	Short: "Store member credentials securely",
	Long: `Store member credentials securely in the system keychain or encrypted file.

You will be prompted for:
  - Member ID (if not provided)
  - Pass hash (from ipb_pass_hash cookie)
  - User Agent (optional, press Enter for default)

To get these values:
1. Log into the gallery site in your browser
2. Open Developer Tools (F12)
3. Go to Application/Storage > Cookies
4. Find and copy the ipb_member_id and ipb_pass_hash values`,
	Example: `  # Interactive login
  ehgrab auth login

  # Login with member ID
  ehgrab auth login 1234567`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [member-id]",
	Short: "Remove stored credentials",
	Long: `Remove stored member credentials.

If no member ID is provided, you will be shown a list of stored accounts
to choose from. You can also remove all accounts at once.`,
	Example: `  # Interactive logout
  ehgrab auth logout

  # Logout specific account
  ehgrab auth logout 1234567`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogout,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored accounts",
	Long:  `List all stored member accounts with sanitized credential information.`,
	Run:   runList,
}

// switchCmd represents the auth switch command
var switchCmd = &cobra.Command{
	Use:   "switch [member-id]",
	Short: "Switch between stored accounts",
	Long: `Switch between stored member accounts.

If no member ID is provided, you will be shown a list of accounts to choose from.`,
	Example: `  # Interactive switch
  ehgrab auth switch

  # Switch to specific account
  ehgrab auth switch 1234567`,
	Args: cobra.MaximumNArgs(1),
	Run:  runSwitch,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)
	authCmd.AddCommand(switchCmd)
}

func runLogin(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	var memberID string
	if len(args) > 0 {
		memberID = args[0]
	}

	// Interactive prompts
	reader := bufio.NewReader(os.Stdin)

	// Show extraction guide first
	auth.ShowCookieExtractionGuide()

	// Ask if ready to continue
	fmt.Print("Ready to enter your cookies? (Y/n): ")
	ready, _ := reader.ReadString('\n')
	if strings.ToLower(strings.TrimSpace(ready)) == "n" {
		fmt.Println("\nRun 'ehgrab auth login' when you're ready.")
		return
	}

	fmt.Println() // Add spacing

	if memberID == "" {
		fmt.Print("🔢 Member ID (ipb_member_id cookie): ")
		input, err := reader.ReadString('\n')
		if err != nil {
			ui.PrintError("Failed to read member ID", err.Error())
			os.Exit(1)
		}
		memberID = strings.TrimSpace(input)
	}

	if memberID == "" || !isNumeric(memberID) {
		ui.PrintError("A numeric member ID is required", "")
		os.Exit(1)
	}

	// Check if account already exists
	if existing, _ := manager.Retrieve(memberID); existing != nil {
		fmt.Printf("\n⚠️  Account '%s' already exists. Update credentials? (y/N): ", memberID)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	fmt.Println("\n🔐 Enter your cookie values (they will be hidden as you type):")
	fmt.Println()

	// Get pass hash with validation
	var passHash string
	for {
		fmt.Printf("ipb_pass_hash cookie value: ")
		passHash, err = readPassword()
		if err != nil {
			ui.PrintError("Failed to read pass hash", err.Error())
			os.Exit(1)
		}

		// Basic validation
		if !isHexString(passHash) || len(passHash) != 32 {
			fmt.Println("\n❌ That doesn't look like a valid ipb_pass_hash.")
			fmt.Println("   It should be a 32-character hexadecimal string.")
			fmt.Println("   Example: a1b2c3d4e5f60718293a4b5c6d7e8f90")
			fmt.Print("\nTry again? (Y/n): ")
			retry, _ := reader.ReadString('\n')
			if strings.ToLower(strings.TrimSpace(retry)) == "n" {
				os.Exit(1)
			}
			continue
		}
		break
	}

	// Optional: Get user agent
	fmt.Print("\n\n🌐 User Agent (press Enter to use default): ")
	userAgent, _ := reader.ReadString('\n')
	userAgent = strings.TrimSpace(userAgent)

	// Show what we're about to do
	fmt.Println("\n📋 Summary:")
	fmt.Printf("   Member ID: %s\n", memberID)
	fmt.Printf("   Pass Hash: %s...%s (hidden)\n", passHash[:4], passHash[len(passHash)-4:])
	if userAgent != "" {
		fmt.Printf("   User Agent: %s\n", userAgent)
	}

	// Create account
	account := &auth.Account{
		MemberID:     memberID,
		PassHash:     passHash,
		UserAgent:    userAgent,
		LastModified: time.Now(),
	}

	// Store credentials
	fmt.Println("\n💾 Storing credentials securely...")
	if err := manager.Store(account); err != nil {
		ui.PrintError("Failed to store credentials", err.Error())
		os.Exit(1)
	}

	// Set as default if it's the first account
	accounts, _ := manager.List()
	if len(accounts) == 1 {
		// First account becomes default automatically
		fmt.Printf("✅ Set '%s' as default account\n", memberID)
	}

	fmt.Println("\n🎉 Credentials stored successfully!")
	ui.PrintSuccess(fmt.Sprintf("Account saved: %s", memberID))

	// Show where credentials are stored
	fmt.Println("\n🔒 Security Information:")
	fmt.Println("   Your credentials are encrypted and stored in:")
	if auth.IsKeyringAvailable() {
		fmt.Println("   • System keychain (primary)")
	}
	fmt.Println("   • Encrypted file (backup)")

	// Show how to use
	fmt.Println("\n📖 Quick Start Guide:")
	fmt.Println("   Download any gallery:")
	fmt.Printf("   $ ehgrab get <gallery_url>\n")
	fmt.Println("\n   Example:")
	fmt.Printf("   $ ehgrab get https://e-hentai.org/g/618395/0439fa3666/\n")
	fmt.Println("\n   Use specific account:")
	fmt.Printf("   $ ehgrab get <gallery_url> --account %s\n", memberID)
	fmt.Println("\n   Show more options:")
	fmt.Printf("   $ ehgrab get --help\n")
	fmt.Println("\n⚠️  Never share your credentials or config files!")
}

func runLogout(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	if len(args) == 0 {
		// List accounts and ask which to remove
		accounts, err := manager.List()
		if err != nil || len(accounts) == 0 {
			ui.PrintError("No stored accounts found", "")
			return
		}

		if len(accounts) == 1 {
			// Only one account, confirm deletion
			account := accounts[0]
			reader := bufio.NewReader(os.Stdin)
			fmt.Printf("Remove account '%s'? (y/N): ", account.MemberID)
			input, _ := reader.ReadString('\n')
			if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
				return
			}

			if err := manager.Delete(account.MemberID); err != nil {
				ui.PrintError("Failed to remove account", err.Error())
				os.Exit(1)
			}
			ui.PrintSuccess("Account removed: " + account.MemberID)
			return
		}

		// Multiple accounts, show menu
		fmt.Println("Select account to remove:")
		for i, account := range accounts {
			fmt.Printf("  %d. %s\n", i+1, account.MemberID)
		}
		fmt.Printf("  %d. Remove all accounts\n", len(accounts)+1)
		fmt.Printf("  0. Cancel\n\n")

		reader := bufio.NewReader(os.Stdin)
		fmt.Print("Choice: ")
		input, _ := reader.ReadString('\n')

		var choice int
		fmt.Sscanf(strings.TrimSpace(input), "%d", &choice)

		if choice == 0 {
			return
		} else if choice == len(accounts)+1 {
			// Remove all
			fmt.Print("Remove ALL accounts? This cannot be undone! (yes/N): ")
			confirm, _ := reader.ReadString('\n')
			if strings.TrimSpace(confirm) != "yes" {
				return
			}

			if err := manager.DeleteAll(); err != nil {
				ui.PrintError("Failed to remove all accounts", err.Error())
				os.Exit(1)
			}
			ui.PrintSuccess("All accounts removed")
			return
		} else if choice > 0 && choice <= len(accounts) {
			account := accounts[choice-1]
			if err := manager.Delete(account.MemberID); err != nil {
				ui.PrintError("Failed to remove account", err.Error())
				os.Exit(1)
			}
			ui.PrintSuccess("Account removed: " + account.MemberID)
			return
		} else {
			ui.PrintError("Invalid choice", "")
			os.Exit(1)
		}
	}

	// Member ID provided as argument
	memberID := args[0]
	if err := manager.Delete(memberID); err != nil {
		ui.PrintError("Failed to remove account", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Account removed: " + memberID)
}

func runList(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	accounts, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list accounts", err.Error())
		os.Exit(1)
	}

	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "Use 'ehgrab auth login' to add an account")
		return
	}

	ui.PrintHighlight("Stored Accounts")
	fmt.Println()

	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		fmt.Printf("%d. Member ID: %s\n", i+1, sanitized.MemberID)
		fmt.Printf("   Pass Hash: %s\n", sanitized.PassHash)
		if sanitized.UserAgent != "" {
			fmt.Printf("   User Agent: %s\n", sanitized.UserAgent)
		}
		fmt.Printf("   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
		fmt.Println()
	}
}

func runSwitch(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	accounts, err := manager.List()
	if err != nil || len(accounts) == 0 {
		ui.PrintError("No stored accounts found", "")
		return
	}

	if len(accounts) == 1 {
		ui.PrintInfo("Only one account available", accounts[0].MemberID)
		return
	}

	var memberID string
	if len(args) > 0 {
		memberID = args[0]
	} else {
		// Interactive selection
		fmt.Println("Select account:")
		for i, account := range accounts {
			fmt.Printf("  %d. %s\n", i+1, account.MemberID)
		}
		fmt.Println()

		reader := bufio.NewReader(os.Stdin)
		fmt.Print("Choice: ")
		input, _ := reader.ReadString('\n')

		var choice int
		fmt.Sscanf(strings.TrimSpace(input), "%d", &choice)

		if choice < 1 || choice > len(accounts) {
			ui.PrintError("Invalid choice", "")
			os.Exit(1)
		}

		memberID = accounts[choice-1].MemberID
	}

	// Verify account exists
	if _, err := manager.Retrieve(memberID); err != nil {
		ui.PrintError("Account not found", memberID)
		os.Exit(1)
	}

	ui.PrintSuccess("Account selected: " + memberID)
	fmt.Println("\nUse the --account flag to use this account:")
	fmt.Printf("  ehgrab get <gallery_url> --account %s\n", memberID)
}

// readPassword reads a password from stdin without echoing
func readPassword() (string, error) {
	// Try to read without echo
	if term.IsTerminal(int(syscall.Stdin)) {
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println() // New line after password
		if err == nil {
			return string(password), nil
		}
	}

	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func isHexString(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return len(s) > 0
}
