package keygen

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"golang.org/x/crypto/ssh"
)

// Algorithm selects the key type.
type Algorithm string

const (
	Ed25519 Algorithm = "ed25519"
	RSA     Algorithm = "rsa"
)

// minRSABits is the smallest RSA size we hand out.
const minRSABits = 2048

// KeyPair holds a generated key pair.
type KeyPair struct {
	Algorithm Algorithm
	// PrivateKey is PEM encoded (OpenSSH format for ed25519, PKCS#1 for RSA).
	PrivateKey []byte
	// PublicKey is in authorized_keys format, including the trailing newline.
	PublicKey []byte
	// Fingerprint is the SHA256 fingerprint as printed by ssh-keygen -l.
	Fingerprint string
}

// Generate creates a new key pair. The comment is embedded in the private key
// and is typically the identity-profile name.
func Generate(alg Algorithm, comment string) (*KeyPair, error) {
	switch alg {
	case Ed25519, "":
		return generateEd25519(comment)
	case RSA:
		return GenerateRSAKeyPair(4096)
	default:
		return nil, fmt.Errorf("unsupported key algorithm %q", alg)
	}
}

func generateEd25519(comment string) (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key: %w", err)
	}

	block, err := ssh.MarshalPrivateKey(priv, comment)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ed25519 private key: %w", err)
	}

	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSH public key: %w", err)
	}

	return &KeyPair{
		Algorithm:   Ed25519,
		PrivateKey:  pem.EncodeToMemory(block),
		PublicKey:   ssh.MarshalAuthorizedKey(sshPub),
		Fingerprint: ssh.FingerprintSHA256(sshPub),
	}, nil
}

// GenerateRSAKeyPair generates an RSA key pair of the given size.
func GenerateRSAKeyPair(bits int) (*KeyPair, error) {
	if bits < minRSABits {
		return nil, fmt.Errorf("RSA key size %d below minimum %d", bits, minRSABits)
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA private key: %w", err)
	}

	sshPub, err := ssh.NewPublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSH public key: %w", err)
	}

	return &KeyPair{
		Algorithm: RSA,
		PrivateKey: pem.EncodeToMemory(&pem.Block{
			Type:  "RSA PRIVATE KEY",
			Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
		}),
		PublicKey:   ssh.MarshalAuthorizedKey(sshPub),
		Fingerprint: ssh.FingerprintSHA256(sshPub),
	}, nil
}

// Fingerprint parses an authorized_keys line and returns its SHA256 fingerprint.
func Fingerprint(authorizedKey []byte) (string, error) {
	pub, _, _, _, err := ssh.ParseAuthorizedKey(authorizedKey)
	if err != nil {
		return "", fmt.Errorf("failed to parse public key: %w", err)
	}
	return ssh.FingerprintSHA256(pub), nil
}
