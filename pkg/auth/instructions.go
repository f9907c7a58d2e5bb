package auth

import (
	"fmt"
	"strings"
)

// ShowCookieExtractionGuide displays step-by-step instructions for extracting cookies
func ShowCookieExtractionGuide() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("📚 MEMBER COOKIE EXTRACTION GUIDE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()

	fmt.Println("This tool needs your member session cookies to access restricted galleries.")
	fmt.Println("Follow these steps to extract them from your browser:")
	fmt.Println()

	// Browser selection
	fmt.Println("🌐 STEP 1: Open the gallery site in your browser")
	fmt.Println("   - Go to the forum login page and sign in")
	fmt.Println("   - Then open https://e-hentai.org")
	fmt.Println("   - Make sure the front page shows you as logged in")
	fmt.Println()

	// Developer tools
	fmt.Println("🔧 STEP 2: Open Developer Tools")
	fmt.Println("   • Chrome/Edge/Brave: Press F12 or Ctrl+Shift+I (Cmd+Option+I on Mac)")
	fmt.Println("   • Firefox: Press F12 or Ctrl+Shift+I (Cmd+Option+I on Mac)")
	fmt.Println("   • Safari: Enable Developer menu in Preferences, then Cmd+Option+I")
	fmt.Println()

	// Find cookies
	fmt.Println("🍪 STEP 3: Find your cookies")
	fmt.Println("   1. Go to 'Application' tab (Chrome) or 'Storage' tab (Firefox)")
	fmt.Println("   2. In the left sidebar, expand 'Cookies'")
	fmt.Println("   3. Click on 'https://e-hentai.org'")
	fmt.Println("   4. Look for these cookies in the list:")
	fmt.Println()

	// Cookie details
	fmt.Println("🔑 STEP 4: Copy these specific values:")
	fmt.Println("   ┌───────────────┬──────────────────────────────────────────────┐")
	fmt.Println("   │ Cookie Name   │ What it looks like                           │")
	fmt.Println("   ├───────────────┼──────────────────────────────────────────────┤")
	fmt.Println("   │ ipb_member_id │ Your numeric member ID                       │")
	fmt.Println("   │               │ Example: 1234567                             │")
	fmt.Println("   ├───────────────┼──────────────────────────────────────────────┤")
	fmt.Println("   │ ipb_pass_hash │ 32-character hex string                      │")
	fmt.Println("   │               │ Example: a1b2c3d4e5f60718293a4b5c6d7e8f90   │")
	fmt.Println("   └───────────────┴──────────────────────────────────────────────┘")
	fmt.Println()

	// Tips
	fmt.Println("💡 TIPS:")
	fmt.Println("   • Copy the ENTIRE value (everything after the = sign)")
	fmt.Println("   • Don't include quotes or semicolons")
	fmt.Println("   • These cookies are long-lived but do expire when you log out")
	fmt.Println()

	// Security warning
	fmt.Println("⚠️  SECURITY WARNING:")
	fmt.Println("   • These cookies give FULL access to your account")
	fmt.Println("   • NEVER share them with anyone")
	fmt.Println("   • Store them securely (this tool encrypts them)")
	fmt.Println()
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()
}

// ShowQuickExtractGuide shows a condensed version for experienced users
func ShowQuickExtractGuide() {
	fmt.Println("\n🍪 Quick Guide: F12 → Application/Storage tab → Cookies → https://e-hentai.org")
	fmt.Println("   Need: ipb_member_id=... and ipb_pass_hash=...")
	fmt.Println("   Type 'help' for detailed instructions")
}
