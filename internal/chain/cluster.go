package chain

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

const (
	clusterDevnetNameConstant          = "devnet"
	clusterMainnetNameConstant         = "mainnet-beta"
	devnetGenesisHashConstant          = "EtWTRABZaYq6iMfeYKouRu166VU2xqa1wcaWoxPkrZBG"
	mainnetGenesisHashConstant         = "5eykt4UsFv8P8NJdTREpY1vzqKqZKvdpKuc147dw2N9d"
	explorerBaseURLConstant            = "https://explorer.solana.com"
	explorerTransactionTemplateConst   = "%s/tx/%s?cluster=%s"
	unsupportedClusterTemplateConstant = "%w: genesis hash %s"
)

// Cluster names a Solana network recognized by the block explorer.
type Cluster string

// Supported clusters.
const (
	ClusterDevnet  Cluster = Cluster(clusterDevnetNameConstant)
	ClusterMainnet Cluster = Cluster(clusterMainnetNameConstant)
)

var genesisHashMapping = map[string]Cluster{
	devnetGenesisHashConstant:  ClusterDevnet,
	mainnetGenesisHashConstant: ClusterMainnet,
}

// String returns the explorer name of the cluster.
func (cluster Cluster) String() string {
	return string(cluster)
}

// ClassifyGenesisHash maps a genesis hash onto a known cluster.
func ClassifyGenesisHash(genesisHash solana.Hash) (Cluster, error) {
	cluster, clusterKnown := genesisHashMapping[genesisHash.String()]
	if !clusterKnown {
		return "", fmt.Errorf(unsupportedClusterTemplateConstant, ErrUnsupportedCluster, genesisHash)
	}
	return cluster, nil
}

// ResolveCluster queries the connected endpoint once and classifies it.
func ResolveCluster(executionContext context.Context, client Client) (Cluster, error) {
	genesisHash, genesisError := client.GetGenesisHash(executionContext)
	if genesisError != nil {
		return "", genesisError
	}
	return ClassifyGenesisHash(genesisHash)
}

// TransactionExplorerURL links to a transaction on the block explorer.
func TransactionExplorerURL(signature solana.Signature, cluster Cluster) string {
	return fmt.Sprintf(explorerTransactionTemplateConst, explorerBaseURLConstant, signature, cluster)
}
