package ldap

// ResultCode is the resultCode of an LDAPResult (RFC 4511 Section 4.1.9).
type ResultCode int

const (
	ResultSuccess                      ResultCode = 0
	ResultOperationsError              ResultCode = 1
	ResultProtocolError                ResultCode = 2
	ResultTimeLimitExceeded            ResultCode = 3
	ResultSizeLimitExceeded            ResultCode = 4
	ResultCompareFalse                 ResultCode = 5
	ResultCompareTrue                  ResultCode = 6
	ResultAuthMethodNotSupported       ResultCode = 7
	ResultStrongerAuthRequired         ResultCode = 8
	ResultReferral                     ResultCode = 10
	ResultAdminLimitExceeded           ResultCode = 11
	ResultUnavailableCriticalExtension ResultCode = 12
	ResultConfidentialityRequired      ResultCode = 13
	ResultSASLBindInProgress           ResultCode = 14

	ResultNoSuchAttribute        ResultCode = 16
	ResultUndefinedAttributeType ResultCode = 17
	ResultInappropriateMatching  ResultCode = 18
	ResultConstraintViolation    ResultCode = 19
	ResultAttributeOrValueExists ResultCode = 20
	ResultInvalidAttributeSyntax ResultCode = 21

	ResultNoSuchObject              ResultCode = 32
	ResultAliasProblem              ResultCode = 33
	ResultInvalidDNSyntax           ResultCode = 34
	ResultAliasDereferencingProblem ResultCode = 36

	ResultInappropriateAuthentication ResultCode = 48
	ResultInvalidCredentials          ResultCode = 49
	ResultInsufficientAccessRights    ResultCode = 50
	ResultBusy                        ResultCode = 51
	ResultUnavailable                 ResultCode = 52
	ResultUnwillingToPerform          ResultCode = 53
	ResultLoopDetect                  ResultCode = 54

	ResultNamingViolation           ResultCode = 64
	ResultObjectClassViolation      ResultCode = 65
	ResultNotAllowedOnNonLeaf       ResultCode = 66
	ResultNotAllowedOnRDN           ResultCode = 67
	ResultEntryAlreadyExists        ResultCode = 68
	ResultObjectClassModsProhibited ResultCode = 69
	ResultAffectsMultipleDSAs       ResultCode = 71
	ResultOther                     ResultCode = 80

	// RFC 3909 cancel and RFC 4528 assertion.
	ResultCanceled        ResultCode = 118
	ResultNoSuchOperation ResultCode = 119
	ResultTooLate         ResultCode = 120
	ResultCannotCancel    ResultCode = 121
	ResultAssertionFailed ResultCode = 122
)

// Client-side result codes. A server never sends them; the client uses them
// to complete requests that failed locally.
const (
	ResultClientSideServerDown            ResultCode = 81
	ResultClientSideLocalError            ResultCode = 82
	ResultClientSideEncodingError         ResultCode = 83
	ResultClientSideDecodingError         ResultCode = 84
	ResultClientSideTimeout               ResultCode = 85
	ResultClientSideAuthUnknown           ResultCode = 86
	ResultClientSideFilterError           ResultCode = 87
	ResultClientSideUserCancelled         ResultCode = 88
	ResultClientSideParamError            ResultCode = 89
	ResultClientSideNoMemory              ResultCode = 90
	ResultClientSideConnectError          ResultCode = 91
	ResultClientSideNotSupported          ResultCode = 92
	ResultClientSideControlNotFound       ResultCode = 93
	ResultClientSideNoResultsReturned     ResultCode = 94
	ResultClientSideMoreResultsToReturn   ResultCode = 95
	ResultClientSideClientLoop            ResultCode = 96
	ResultClientSideReferralLimitExceeded ResultCode = 97
)

var resultCodeNames = map[ResultCode]string{
	ResultSuccess:                         "success",
	ResultOperationsError:                 "operationsError",
	ResultProtocolError:                   "protocolError",
	ResultTimeLimitExceeded:               "timeLimitExceeded",
	ResultSizeLimitExceeded:               "sizeLimitExceeded",
	ResultCompareFalse:                    "compareFalse",
	ResultCompareTrue:                     "compareTrue",
	ResultAuthMethodNotSupported:          "authMethodNotSupported",
	ResultStrongerAuthRequired:            "strongerAuthRequired",
	ResultReferral:                        "referral",
	ResultAdminLimitExceeded:              "adminLimitExceeded",
	ResultUnavailableCriticalExtension:    "unavailableCriticalExtension",
	ResultConfidentialityRequired:         "confidentialityRequired",
	ResultSASLBindInProgress:              "saslBindInProgress",
	ResultNoSuchAttribute:                 "noSuchAttribute",
	ResultUndefinedAttributeType:          "undefinedAttributeType",
	ResultInappropriateMatching:           "inappropriateMatching",
	ResultConstraintViolation:             "constraintViolation",
	ResultAttributeOrValueExists:          "attributeOrValueExists",
	ResultInvalidAttributeSyntax:          "invalidAttributeSyntax",
	ResultNoSuchObject:                    "noSuchObject",
	ResultAliasProblem:                    "aliasProblem",
	ResultInvalidDNSyntax:                 "invalidDNSyntax",
	ResultAliasDereferencingProblem:       "aliasDereferencingProblem",
	ResultInappropriateAuthentication:     "inappropriateAuthentication",
	ResultInvalidCredentials:              "invalidCredentials",
	ResultInsufficientAccessRights:        "insufficientAccessRights",
	ResultBusy:                            "busy",
	ResultUnavailable:                     "unavailable",
	ResultUnwillingToPerform:              "unwillingToPerform",
	ResultLoopDetect:                      "loopDetect",
	ResultNamingViolation:                 "namingViolation",
	ResultObjectClassViolation:            "objectClassViolation",
	ResultNotAllowedOnNonLeaf:             "notAllowedOnNonLeaf",
	ResultNotAllowedOnRDN:                 "notAllowedOnRDN",
	ResultEntryAlreadyExists:              "entryAlreadyExists",
	ResultObjectClassModsProhibited:       "objectClassModsProhibited",
	ResultAffectsMultipleDSAs:             "affectsMultipleDSAs",
	ResultOther:                           "other",
	ResultCanceled:                        "canceled",
	ResultNoSuchOperation:                 "noSuchOperation",
	ResultTooLate:                         "tooLate",
	ResultCannotCancel:                    "cannotCancel",
	ResultAssertionFailed:                 "assertionFailed",
	ResultClientSideServerDown:            "clientSideServerDown",
	ResultClientSideLocalError:            "clientSideLocalError",
	ResultClientSideEncodingError:         "clientSideEncodingError",
	ResultClientSideDecodingError:         "clientSideDecodingError",
	ResultClientSideTimeout:               "clientSideTimeout",
	ResultClientSideAuthUnknown:           "clientSideAuthUnknown",
	ResultClientSideFilterError:           "clientSideFilterError",
	ResultClientSideUserCancelled:         "clientSideUserCancelled",
	ResultClientSideParamError:            "clientSideParamError",
	ResultClientSideNoMemory:              "clientSideNoMemory",
	ResultClientSideConnectError:          "clientSideConnectError",
	ResultClientSideNotSupported:          "clientSideNotSupported",
	ResultClientSideControlNotFound:       "clientSideControlNotFound",
	ResultClientSideNoResultsReturned:     "clientSideNoResultsReturned",
	ResultClientSideMoreResultsToReturn:   "clientSideMoreResultsToReturn",
	ResultClientSideClientLoop:            "clientSideClientLoop",
	ResultClientSideReferralLimitExceeded: "clientSideReferralLimitExceeded",
}

// String returns the RFC name of the code, or "unknown".
func (r ResultCode) String() string {
	if name, ok := resultCodeNames[r]; ok {
		return name
	}
	return "unknown"
}

func (r ResultCode) IsSuccess() bool {
	return r == ResultSuccess
}

// IsClientSide reports whether the code was generated locally by the client.
func (r ResultCode) IsClientSide() bool {
	return r >= ResultClientSideServerDown && r <= ResultClientSideReferralLimitExceeded
}

// IsError reports whether r is neither success nor one of the codes that
// complete an operation normally.
func (r ResultCode) IsError() bool {
	switch r {
	case ResultSuccess, ResultCompareFalse, ResultCompareTrue, ResultReferral, ResultSASLBindInProgress:
		return false
	}
	return true
}
