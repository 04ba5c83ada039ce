package graph

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"time"

	"github.com/onnwee/knowledge-cluster-map/engine/internal/db"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/metrics"
)

// Community represents a detected community with its members
type Community struct {
	ID      int      `json:"id"`
	Members []string `json:"members"`
	Label   string   `json:"label"`
}

// CommunityResult holds the result of community detection
type CommunityResult struct {
	Communities     []Community    `json:"communities"`
	NodeToCommunity map[string]int `json:"node_to_community"`
	Modularity      float64        `json:"modularity"`
}

// DetectCommunities runs Louvain community detection over the stored graph
// and writes the resulting labels back to graph_nodes.
func (s *Service) DetectCommunities(ctx context.Context) (*CommunityResult, error) {
	start := time.Now()
	log.Printf("🔍 Starting community detection (Louvain algorithm)")

	rows, err := s.store.ListGraphNodes(ctx, s.cfg.LayoutMaxNodes)
	if err != nil {
		return nil, fmt.Errorf("fetch nodes: %w", err)
	}
	if len(rows) == 0 {
		log.Printf("ℹ️ No nodes found for community detection")
		return &CommunityResult{Communities: []Community{}, NodeToCommunity: map[string]int{}}, nil
	}

	nodeIDs := make([]string, len(rows))
	names := make(map[string]string, len(rows))
	for i, n := range rows {
		nodeIDs[i] = n.ID
		names[n.ID] = n.Name
	}

	links, err := s.store.ListGraphLinksAmong(ctx, nodeIDs)
	if err != nil {
		return nil, fmt.Errorf("fetch links: %w", err)
	}

	log.Printf("📊 Building graph structure: %d nodes, %d links", len(nodeIDs), len(links))

	adjacency, degrees, totalWeight := buildAdjacency(nodeIDs, links)
	nodeToCommunity := runLouvain(nodeIDs, adjacency, degrees, totalWeight)

	// Renumber communities to be sequential
	finalNodeToCommunity := renumberCommunities(nodeToCommunity)

	// Group members and pick a label per community (highest-degree member)
	communitySizes := make(map[int][]string)
	for node, comm := range finalNodeToCommunity {
		communitySizes[comm] = append(communitySizes[comm], node)
	}
	nodeDegrees := make(map[string]int)
	for _, link := range links {
		nodeDegrees[link.Source]++
		nodeDegrees[link.Target]++
	}

	communities := make([]Community, 0, len(communitySizes))
	for id, members := range communitySizes {
		topNode := ""
		maxDegree := -1
		for _, nodeID := range members {
			if deg := nodeDegrees[nodeID]; deg > maxDegree {
				maxDegree = deg
				topNode = nodeID
			}
		}
		label := names[topNode]
		if label == "" {
			label = fmt.Sprintf("Community %d", id)
		}
		communities = append(communities, Community{ID: id, Members: members, Label: label})
	}
	sort.Slice(communities, func(i, j int) bool {
		return len(communities[i].Members) > len(communities[j].Members)
	})

	modularity := calculateModularity(finalNodeToCommunity, adjacency, degrees, totalWeight)

	// Persist labels
	ids := make([]string, 0, len(finalNodeToCommunity))
	labels := make([]int32, 0, len(finalNodeToCommunity))
	for node, comm := range finalNodeToCommunity {
		ids = append(ids, node)
		labels = append(labels, int32(comm))
	}
	if err := s.store.SetGraphNodeCommunities(ctx, ids, labels); err != nil {
		return nil, fmt.Errorf("store communities: %w", err)
	}
	s.cache.Delete(snapshotCacheKey)

	metrics.CommunitiesTotal.Set(float64(len(communities)))
	metrics.CommunityDetectionDuration.Observe(time.Since(start).Seconds())
	log.Printf("✅ Community detection complete: %d communities, modularity=%.3f", len(communities), modularity)

	return &CommunityResult{
		Communities:     communities,
		NodeToCommunity: finalNodeToCommunity,
		Modularity:      modularity,
	}, nil
}

func buildAdjacency(nodeIDs []string, links []db.GraphLink) (map[string]map[string]float64, map[string]float64, float64) {
	adjacency := make(map[string]map[string]float64)
	degrees := make(map[string]float64)
	for _, id := range nodeIDs {
		adjacency[id] = make(map[string]float64)
		degrees[id] = 0
	}

	totalWeight := 0.0
	for _, link := range links {
		src, tgt := link.Source, link.Target
		if _, ok := adjacency[src]; !ok {
			continue
		}
		if _, ok := adjacency[tgt]; !ok {
			continue
		}
		weight := link.Weight
		if weight <= 0 {
			weight = 1
		}
		adjacency[src][tgt] += weight
		adjacency[tgt][src] += weight
		degrees[src] += weight
		degrees[tgt] += weight
		totalWeight += weight
	}
	return adjacency, degrees, totalWeight
}

// runLouvain iteratively moves nodes to the neighboring community with the
// best modularity gain until no move improves the partition.
func runLouvain(nodeIDs []string, adjacency map[string]map[string]float64, degrees map[string]float64, totalWeight float64) map[string]int {
	nodeToCommunity := make(map[string]int)
	for i, id := range nodeIDs {
		nodeToCommunity[id] = i
	}

	improved := true
	iteration := 0
	maxIterations := 50

	for improved && iteration < maxIterations {
		improved = false
		iteration++

		// Shuffle nodes for better results
		shuffled := make([]string, len(nodeIDs))
		copy(shuffled, nodeIDs)
		rand.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		for _, nodeID := range shuffled {
			currentCommunity := nodeToCommunity[nodeID]
			neighbors := adjacency[nodeID]

			neighborCommunities := make(map[int]bool)
			for neighbor := range neighbors {
				neighborCommunities[nodeToCommunity[neighbor]] = true
			}

			bestCommunity := currentCommunity
			bestGain := 0.0
			for targetCommunity := range neighborCommunities {
				if targetCommunity == currentCommunity {
					continue
				}
				gain := modularityGain(nodeID, currentCommunity, targetCommunity, nodeToCommunity, adjacency, degrees, totalWeight)
				if gain > bestGain {
					bestGain = gain
					bestCommunity = targetCommunity
				}
			}

			if bestCommunity != currentCommunity {
				nodeToCommunity[nodeID] = bestCommunity
				improved = true
			}
		}
	}
	return nodeToCommunity
}

func renumberCommunities(nodeToCommunity map[string]int) map[string]int {
	uniqueCommunities := make(map[int]bool)
	for _, comm := range nodeToCommunity {
		uniqueCommunities[comm] = true
	}
	communityIDs := make([]int, 0, len(uniqueCommunities))
	for comm := range uniqueCommunities {
		communityIDs = append(communityIDs, comm)
	}
	sort.Ints(communityIDs)

	communityMap := make(map[int]int)
	for i, oldID := range communityIDs {
		communityMap[oldID] = i
	}
	final := make(map[string]int, len(nodeToCommunity))
	for node, comm := range nodeToCommunity {
		final[node] = communityMap[comm]
	}
	return final
}

// modularityGain calculates the gain in modularity from moving a node between communities
func modularityGain(nodeID string, fromCommunity, toCommunity int, nodeToCommunity map[string]int, adjacency map[string]map[string]float64, degrees map[string]float64, totalWeight float64) float64 {
	if totalWeight == 0 {
		return 0
	}

	neighbors := adjacency[nodeID]
	nodeDegree := degrees[nodeID]

	weightTo := 0.0
	weightFrom := 0.0
	for neighbor, weight := range neighbors {
		nComm := nodeToCommunity[neighbor]
		if nComm == toCommunity {
			weightTo += weight
		} else if nComm == fromCommunity {
			weightFrom += weight
		}
	}

	m2 := 2 * totalWeight
	return ((weightTo - weightFrom) / m2) -
		(nodeDegree *
			(sumDegrees(toCommunity, nodeToCommunity, degrees)-
				sumDegrees(fromCommunity, nodeToCommunity, degrees)) /
			(m2 * m2))
}

// sumDegrees sums the degrees of all nodes in a community
func sumDegrees(community int, nodeToCommunity map[string]int, degrees map[string]float64) float64 {
	sum := 0.0
	for node, comm := range nodeToCommunity {
		if comm == community {
			sum += degrees[node]
		}
	}
	return sum
}

// calculateModularity calculates the modularity of the current community structure
func calculateModularity(nodeToCommunity map[string]int, adjacency map[string]map[string]float64, degrees map[string]float64, totalWeight float64) float64 {
	if totalWeight == 0 {
		return 0
	}

	m2 := 2 * totalWeight

	// Per-community form: Q = sum_c [ w_in(c)/2m - (d_tot(c)/2m)^2 ], where
	// w_in counts both directions of every internal edge and d_tot sums the
	// degrees of the community's members. Equivalent to summing
	// A_ij - k_i*k_j/2m over every same-community pair, including pairs with
	// no edge between them.
	internalWeight := make(map[int]float64)
	communityDegree := make(map[int]float64)
	for node, comm := range nodeToCommunity {
		communityDegree[comm] += degrees[node]
		for neighbor, weight := range adjacency[node] {
			if nodeToCommunity[neighbor] == comm {
				internalWeight[comm] += weight
			}
		}
	}

	modularity := 0.0
	for comm, totalDegree := range communityDegree {
		modularity += internalWeight[comm]/m2 - (totalDegree/m2)*(totalDegree/m2)
	}
	return modularity
}
