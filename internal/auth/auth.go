// Package auth classifies a host project by authentication library and
// names the adapter that bridges the CMS API routes to it.
package auth

import (
	"path"

	"github.com/johnpolacek/create-bucket-cms/internal/analyzer"
)

// Profile is the authentication mechanism detected in the host project.
type Profile string

const (
	NextAuth        Profile = "next-auth"
	Clerk           Profile = "clerk"
	LocalhostBypass Profile = "localhost"
)

// Marker packages, checked in this order.
const (
	NextAuthPackage = "next-auth"
	ClerkPackage    = "@clerk/nextjs"
)

// Paths inside the template API route tree (slash separated).
const (
	// AdaptersDir holds one subdirectory per profile.
	AdaptersDir = "auth/adapters"
	// AdapterFile is the file every adapter directory provides.
	AdapterFile = "index.ts"
	// TargetFile is overwritten with the selected adapter.
	TargetFile = "auth/index.ts"
)

// Profiles lists every profile in detection order.
var Profiles = []Profile{NextAuth, Clerk, LocalhostBypass}

// MarkerPackages are the dependencies that drive detection.
var MarkerPackages = []string{NextAuthPackage, ClerkPackage}

// Select returns exactly one profile for the manifest. next-auth wins over
// Clerk when both are declared.
func Select(m analyzer.Manifest) Profile {
	switch {
	case m.HasDependency(NextAuthPackage):
		return NextAuth
	case m.HasDependency(ClerkPackage):
		return Clerk
	default:
		return LocalhostBypass
	}
}

// SourceDir is the adapter directory for p, relative to the API route root.
func (p Profile) SourceDir() string {
	return path.Join(AdaptersDir, string(p))
}

// SourceFile is the adapter file for p, relative to the API route root.
func (p Profile) SourceFile() string {
	return path.Join(p.SourceDir(), AdapterFile)
}

// Description is a human readable label for progress output.
func (p Profile) Description() string {
	switch p {
	case NextAuth:
		return "NextAuth.js"
	case Clerk:
		return "Clerk"
	case LocalhostBypass:
		return "localhost only (no auth library detected)"
	default:
		return string(p)
	}
}
