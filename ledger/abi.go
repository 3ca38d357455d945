package ledger

// DocumentRegistryABI is the ABI of the on-chain document registry.
const DocumentRegistryABI = `[
	{
		"type": "function",
		"name": "storeDocument",
		"stateMutability": "nonpayable",
		"inputs": [
			{"name": "hash", "type": "bytes32"},
			{"name": "ipfsHash", "type": "string"},
			{"name": "encryptedKey", "type": "string"}
		],
		"outputs": []
	},
	{
		"type": "function",
		"name": "verifyHash",
		"stateMutability": "view",
		"inputs": [
			{"name": "hash", "type": "bytes32"}
		],
		"outputs": [
			{"name": "exists", "type": "bool"},
			{"name": "submitter", "type": "address"},
			{"name": "timestamp", "type": "uint256"},
			{"name": "ipfsHash", "type": "string"},
			{"name": "encryptedKey", "type": "string"},
			{"name": "revoked", "type": "bool"}
		]
	},
	{
		"type": "function",
		"name": "revokeDocument",
		"stateMutability": "nonpayable",
		"inputs": [
			{"name": "hash", "type": "bytes32"}
		],
		"outputs": []
	}
]`

const (
	methodStore  = "storeDocument"
	methodVerify = "verifyHash"
	methodRevoke = "revokeDocument"
)
