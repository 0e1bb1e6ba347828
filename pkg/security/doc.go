/*
Package security holds the panel's cryptographic material: the key
vault that encrypts node API keys at rest, and the certificate
authority that issues per-node TLS client certificates.

# Key Vault

Node API keys never reach the store in plaintext. The vault derives an
AES-256-GCM key from the panel's configured secret and encrypts each
API key with a fresh nonce:

	vault, _ := security.NewKeyVaultFromSecret(cfg.Secret)
	enc, _ := vault.EncryptAPIKey(security.GenerateAPIKey())
	// enc goes into the node record; decrypt on the way out

Losing the secret means losing every stored API key; there is no
recovery path short of re-keying the fleet.

# Certificate Authority

The panel runs a single self-signed root (10-year validity, RSA-4096)
and issues 90-day RSA-2048 certificates to nodes:

	┌───────────────────────────────────────────────────────┐
	│                   Panel Root CA                       │
	│       persisted in the store, key encrypted           │
	│         with the vault before it is written           │
	└──────────────────────────┬────────────────────────────┘
	                           │ signs
	          ┌────────────────┼────────────────┐
	          ▼                ▼                ▼
	     node-edge-1      node-edge-2      node-edge-3
	     (client+server auth, 90 days)

Ensure is idempotent: the first call mints and persists the root,
later calls reload it. Issued certificates are exported as PEM bundles
(node.crt, node.key, ca.crt) for the operator to place on the node
host; CertNeedsRotation flags bundles inside the 30-day rotation
window.
*/
package security
