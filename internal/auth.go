package internal

import (
	"bufio"
	"crypto/subtle"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"strconv"
	"strings"

	"github.com/GehirnInc/crypt"
	_ "github.com/GehirnInc/crypt/md5_crypt"
	_ "github.com/GehirnInc/crypt/sha256_crypt"
	_ "github.com/GehirnInc/crypt/sha512_crypt"
	"github.com/msteinert/pam"
	"github.com/openwall/yescrypt-go"
	"golang.org/x/crypto/bcrypt"
)

const (
	passwdPath = "/etc/passwd"
	shadowPath = "/etc/shadow"
)

// NewVerifier builds the verifier selected by the configuration and runs its
// startup self-check. It must be called before privileges are dropped.
func NewVerifier(config Configuration) (Verifier, error) {
	switch config.AuthBackend {
	case "pam":
		auth, err := NewPamAuthenticator(config)
		if err != nil {
			return nil, fatalf("pam", err)
		}
		return auth, nil
	default:
		hash, err := LoadReferenceHash(passwdPath, shadowPath, os.Getuid())
		if err != nil {
			return nil, err
		}
		v := NewShadowVerifier(hash)
		if err := SelfCheck(v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

// SelfCheck verifies an empty password. A verifier that errors on it can
// never unlock, so locking with it must not start.
func SelfCheck(v Verifier) error {
	decision, err := v.Verify(nil)
	if decision == VerifierError {
		return fatalf("crypt", err)
	}
	return nil
}

// LoadReferenceHash returns the stored password hash of the user with the
// given uid, resolving a shadowed entry through the shadow file
func LoadReferenceHash(passwdFile, shadowFile string, uid int) (string, error) {
	entry, err := lookupPasswd(passwdFile, uid)
	if err != nil {
		return "", fatalf("getpwuid", err)
	}

	if entry.passwd != "x" {
		return entry.passwd, nil
	}

	hash, err := lookupShadow(shadowFile, entry.name)
	if err != nil {
		return "", fatalf("getspnam", fmt.Errorf("cannot retrieve shadow entry, make sure to suid or sgid dotlock: %w", err))
	}
	return hash, nil
}

type passwdEntry struct {
	name   string
	passwd string
	uid    int
}

// lookupPasswd finds the passwd(5) entry for uid
func lookupPasswd(path string, uid int) (passwdEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return passwdEntry{}, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), ":")
		if len(fields) < 3 {
			continue
		}
		id, err := strconv.Atoi(fields[2])
		if err != nil || id != uid {
			continue
		}
		return passwdEntry{name: fields[0], passwd: fields[1], uid: id}, nil
	}
	if err := scanner.Err(); err != nil {
		return passwdEntry{}, err
	}
	return passwdEntry{}, errors.New("cannot retrieve password entry")
}

// lookupShadow finds the hash field of the shadow(5) entry for name
func lookupShadow(path, name string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return "", fmt.Errorf("permission denied reading %s", path)
		}
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), ":")
		if len(fields) >= 2 && fields[0] == name {
			return fields[1], nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("no entry for %s", name)
}

// ShadowVerifier checks candidates against a crypt(3) hash. yescrypt and
// bcrypt have their own packages; MD5, SHA-256 and SHA-512 go through crypt.
type ShadowVerifier struct {
	hash string
}

// NewShadowVerifier creates a verifier for the given reference hash
func NewShadowVerifier(hash string) *ShadowVerifier {
	return &ShadowVerifier{hash: hash}
}

// Verify hashes candidate under the reference's scheme and compares
func (v *ShadowVerifier) Verify(candidate []byte) (decision Decision, err error) {
	if err := checkHashFormat(v.hash); err != nil {
		return VerifierError, err
	}

	defer func() {
		if r := recover(); r != nil {
			decision, err = VerifierError, fmt.Errorf("crypt: %v", r)
		}
	}()

	switch scheme := hashScheme(v.hash); scheme {
	case "$y$":
		return verifyYescrypt(v.hash, candidate)
	case "$2a$", "$2b$", "$2y$":
		return verifyBcrypt(v.hash, candidate)
	default:
		if !crypt.IsHashSupported(v.hash) {
			return VerifierError, fmt.Errorf("unsupported hash scheme %q", scheme)
		}
	}

	err = crypt.NewFromHash(v.hash).Verify(v.hash, candidate)
	switch {
	case err == nil:
		return Match, nil
	case errors.Is(err, crypt.ErrKeyMismatch):
		return Mismatch, nil
	default:
		return VerifierError, err
	}
}

// checkHashFormat rejects hashes that no password can ever match: anything
// without a "$id$" prefix, and "$id$" hashes with an empty or missing salt
// or digest
func checkHashFormat(hash string) error {
	scheme := hashScheme(hash)
	if !strings.HasPrefix(hash, "$") {
		return fmt.Errorf("unsupported hash scheme %q", scheme)
	}

	minFields := 3
	if scheme == "$y$" {
		// Parameters come before the salt
		minFields = 4
	}
	fields := strings.Split(hash[1:], "$")
	if len(fields) < minFields {
		return fmt.Errorf("malformed %s hash: missing salt or digest", scheme)
	}
	for _, f := range fields {
		if f == "" {
			return fmt.Errorf("malformed %s hash: empty field", scheme)
		}
	}
	return nil
}

// verifyYescrypt rehashes candidate with the reference's parameters and salt
func verifyYescrypt(hash string, candidate []byte) (Decision, error) {
	setting := hash[:strings.LastIndex(hash, "$")]
	computed, err := yescrypt.Hash(candidate, []byte(setting))
	if err != nil {
		return VerifierError, fmt.Errorf("yescrypt: %w", err)
	}
	defer clear(computed)

	if subtle.ConstantTimeCompare(computed, []byte(hash)) == 1 {
		return Match, nil
	}
	return Mismatch, nil
}

func verifyBcrypt(hash string, candidate []byte) (Decision, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), candidate)
	switch {
	case err == nil:
		return Match, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword), errors.Is(err, bcrypt.ErrPasswordTooLong):
		return Mismatch, nil
	default:
		return VerifierError, fmt.Errorf("bcrypt: %w", err)
	}
}

// hashScheme returns the "$id$" prefix of a hash without any salt or digest
func hashScheme(hash string) string {
	if !strings.HasPrefix(hash, "$") {
		if hash == "" {
			return "empty"
		}
		return "des or locked"
	}
	if i := strings.Index(hash[1:], "$"); i >= 0 {
		return hash[:i+2]
	}
	return "$"
}

// PamAuthenticator handles PAM-based user authentication
type PamAuthenticator struct {
	serviceName string
	username    string
}

// NewPamAuthenticator creates a new PAM authenticator for the invoking user
func NewPamAuthenticator(config Configuration) (*PamAuthenticator, error) {
	currentUser, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("cannot resolve invoking user: %w", err)
	}

	return &PamAuthenticator{
		serviceName: config.PamService,
		username:    currentUser.Username,
	}, nil
}

// Verify runs one PAM authentication with the given password
func (a *PamAuthenticator) Verify(candidate []byte) (Decision, error) {
	password := string(candidate)

	conv := func(style pam.Style, msg string) (string, error) {
		switch style {
		case pam.PromptEchoOff:
			return password, nil
		case pam.PromptEchoOn:
			// Ignore username prompts as we already provided it
			return "", nil
		case pam.ErrorMsg:
			Info("PAM error: %s", msg)
			return "", nil
		case pam.TextInfo:
			Info("PAM info: %s", msg)
			return "", nil
		default:
			return "", errors.New("unexpected conversation style")
		}
	}

	t, err := pam.StartFunc(a.serviceName, a.username, conv)
	if err != nil {
		return VerifierError, fmt.Errorf("failed to start PAM transaction: %w", err)
	}

	if err := t.Authenticate(0); err != nil {
		Debug("PAM authentication failed: %v", err)
		return Mismatch, nil
	}

	if err := t.AcctMgmt(0); err != nil {
		Debug("PAM account validation failed: %v", err)
		return Mismatch, nil
	}

	return Match, nil
}
