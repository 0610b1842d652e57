package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sort"

	"github.com/viralforge/reelpay/internal/adapters/security"
	"github.com/viralforge/reelpay/internal/app/bootstrap"
	"github.com/viralforge/reelpay/internal/domain"
)

func main() {
	configPath := flag.String("config", "configs/default.yaml", "path to the service config")
	out := flag.String("out", "", "artifacts directory (defaults to ledger.artifacts_dir)")
	tokens := flag.Bool("tokens", false, "print development bearer tokens for the deployer and backend")
	hash := flag.String("hash", "", "print the keccak256 id of a product or order label and exit")
	flag.Parse()

	if *hash != "" {
		fmt.Println(domain.HashID(*hash))
		return
	}

	ctx := context.Background()
	cfg, err := bootstrap.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	deployment, release, err := bootstrap.DeployConfigured(ctx, cfg)
	if err != nil {
		log.Fatalf("deploy: %v", err)
	}
	defer release()

	dir := *out
	if dir == "" {
		dir = cfg.ArtifactsDir
	}
	if err := bootstrap.WriteArtifacts(dir, deployment); err != nil {
		log.Fatalf("write artifacts: %v", err)
	}

	names := make([]string, 0, len(deployment.Addresses))
	for name := range deployment.Addresses {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%-18s %s\n", name, deployment.Addresses[name])
	}
	fmt.Printf("artifacts written to %s\n", dir)

	if !*tokens {
		return
	}
	signer, err := security.NewJWTSigner(cfg.JWTIssuer, cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		log.Fatalf("jwt signer: %v", err)
	}
	for _, account := range []domain.Account{cfg.Deployer, cfg.BackendAccount} {
		tok, err := signer.Sign(account)
		if err != nil {
			log.Fatalf("sign token for %s: %v", account, err)
		}
		fmt.Printf("%s bearer %s\n", account, tok)
	}
}
