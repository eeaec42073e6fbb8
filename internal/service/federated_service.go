package service

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"vitalsync-auth/internal/domain"
	"vitalsync-auth/internal/repository"
)

var (
	ErrFederatedTokenInvalid = errors.New("federated token invalid")
	ErrCustomTokenIssue      = errors.New("custom token issue failed")
)

const (
	googleIssuer         = "https://accounts.google.com"
	googleIssuerNoScheme = "accounts.google.com"
	customTokenAudience  = "https://identitytoolkit.googleapis.com/google.identity.identitytoolkit.v1.IdentityToolkit"
	customTokenTTL       = time.Hour
)

// FederatedService valida ID tokens del proveedor externo y emite custom
// tokens para que el cliente los intercambie con el SDK del proveedor.
type FederatedService struct {
	logger       *zap.Logger
	users        repository.UserRepository
	clientID     string
	serviceEmail string
	signKey      *rsa.PrivateKey
	keys         *remoteKeySet
}

func NewFederatedService(logger *zap.Logger, users repository.UserRepository, clientID, certsURL, serviceEmail, privateKeyPEM string) (*FederatedService, error) {
	svc := &FederatedService{
		logger:       logger,
		users:        users,
		clientID:     strings.TrimSpace(clientID),
		serviceEmail: strings.TrimSpace(serviceEmail),
		keys:         newRemoteKeySet(certsURL),
	}
	if strings.TrimSpace(privateKeyPEM) != "" {
		key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(privateKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("parse service account key: %w", err)
		}
		svc.signKey = key
	}
	return svc, nil
}

type federatedClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// VerifyIDToken valida firma, emisor, audiencia y expiracion. Cualquier
// fallo de chequeo se reporta como un unico error de token invalido.
func (s *FederatedService) VerifyIDToken(ctx context.Context, idToken string) (domain.FederatedIdentity, error) {
	if strings.TrimSpace(idToken) == "" {
		return domain.FederatedIdentity{}, ErrFederatedTokenInvalid
	}

	var claims federatedClaims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	_, err := parser.ParseWithClaims(idToken, &claims, func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid header")
		}
		return s.keys.Get(ctx, kid)
	})
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("id token rejected", zap.Error(err))
		}
		return domain.FederatedIdentity{}, ErrFederatedTokenInvalid
	}

	if claims.Issuer != googleIssuer && claims.Issuer != googleIssuerNoScheme {
		return domain.FederatedIdentity{}, ErrFederatedTokenInvalid
	}
	if s.clientID != "" && !audienceContains(claims.Audience, s.clientID) {
		return domain.FederatedIdentity{}, ErrFederatedTokenInvalid
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return domain.FederatedIdentity{}, ErrFederatedTokenInvalid
	}

	identity := domain.FederatedIdentity{
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	return identity, nil
}

// IssueCustomToken firma un token RS256 con la clave de la cuenta de
// servicio, con la audiencia que espera el intercambio del proveedor.
func (s *FederatedService) IssueCustomToken(uid string) (string, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" || s.signKey == nil || s.serviceEmail == "" {
		return "", ErrCustomTokenIssue
	}
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"iss": s.serviceEmail,
		"sub": s.serviceEmail,
		"aud": customTokenAudience,
		"uid": uid,
		"iat": jwt.NewNumericDate(now),
		"exp": jwt.NewNumericDate(now.Add(customTokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(s.signKey)
	if err != nil {
		return "", ErrCustomTokenIssue
	}
	return signed, nil
}

// LinkOrCreate reconcilia un subject federado con una fila local de usuario.
func (s *FederatedService) LinkOrCreate(ctx context.Context, subject, name, phoneNumber string) (domain.User, bool, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return domain.User{}, false, ErrFederatedTokenInvalid
	}
	if s.users == nil {
		return domain.User{}, false, errors.New("federated service not configured")
	}
	user := domain.User{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(name),
		PhoneNumber: strings.TrimSpace(phoneNumber),
		GoogleUID:   subject,
		CreatedAt:   time.Now().UTC(),
	}
	return s.users.UpsertFederated(ctx, user)
}

func audienceContains(aud jwt.ClaimStrings, clientID string) bool {
	for _, a := range aud {
		if a == clientID {
			return true
		}
	}
	return false
}

// remoteKeySet cachea las claves publicas RSA publicadas por el proveedor.
// El mutex solo protege el mapa cacheado; la ida HTTP al proveedor corre
// siempre fuera de la seccion critica, colapsada con singleflight para que
// haya como mucho un fetch en vuelo.
type remoteKeySet struct {
	url    string
	client *http.Client
	group  singleflight.Group

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
	ttl       time.Duration
}

func newRemoteKeySet(url string) *remoteKeySet {
	return &remoteKeySet{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
		keys:   make(map[string]*rsa.PublicKey),
		ttl:    time.Hour,
	}
}

func (k *remoteKeySet) Get(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	k.mu.Lock()
	key, ok := k.keys[kid]
	fresh := time.Since(k.fetchedAt) < k.ttl
	k.mu.Unlock()
	if ok && fresh {
		return key, nil
	}

	_, err, _ := k.group.Do("jwks", func() (any, error) {
		keys, err := k.fetch(ctx)
		if err != nil {
			return nil, err
		}
		k.mu.Lock()
		k.keys = keys
		k.fetchedAt = time.Now().UTC()
		k.mu.Unlock()
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	k.mu.Lock()
	key, ok = k.keys[kid]
	k.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown key id %q", kid)
	}
	return key, nil
}

type jwksDocument struct {
	Keys []struct {
		Kid string `json:"kid"`
		Kty string `json:"kty"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

func (k *remoteKeySet) fetch(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := k.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch key set: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch key set: status=%d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read key set: %w", err)
	}

	var doc jwksDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal key set: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, jk := range doc.Keys {
		if jk.Kty != "RSA" || jk.Kid == "" {
			continue
		}
		nBytes, err := base64.RawURLEncoding.DecodeString(jk.N)
		if err != nil {
			continue
		}
		eBytes, err := base64.RawURLEncoding.DecodeString(jk.E)
		if err != nil {
			continue
		}
		keys[jk.Kid] = &rsa.PublicKey{
			N: new(big.Int).SetBytes(nBytes),
			E: int(new(big.Int).SetBytes(eBytes).Int64()),
		}
	}
	if len(keys) == 0 {
		return nil, errors.New("key set empty")
	}
	return keys, nil
}
