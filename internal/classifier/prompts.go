package classifier

const cardMessagePrompt = `넌 카드 승인 문자 메시지를 분석하는 전문가야. 문자 메시지를 읽고 다음 정보를 JSON으로 추출해.

1. transaction_type
   - "승인": 돈이 지출됨
   - "승인취소": 지출된 돈이 환불됨
   - "거절": 거래가 거부되어 돈이 지출되지 않음
   - "N": 카드 승인 관련 문자가 아님. 이때 나머지 필드는 모두 null
2. amount: 거래 금액, 숫자만 (예: "121,000" → 121000)
3. currency: "KRW", "JPY", "USD", "EUR" 중 하나
4. transaction_party: 가맹점명을 원본 그대로. 편집하지 말 것`

const bankMessagePrompt = `넌 은행 입출금 문자 메시지를 분석하는 전문가야. 문자 메시지를 읽고 다음 정보를 JSON으로 추출해.

1. transaction_type
   - "입금": 돈이 입금됨
   - "출금": 돈이 출금됨
   - "거절": 거래가 거부되어 잔액 변화 없음
   - "N": 은행 거래 문자가 아님. 이때 나머지 필드는 모두 null
2. amount: 거래 금액, 숫자만 (예: "121,000" → 121000)
3. currency: "KRW", "JPY", "USD", "EUR" 중 하나
4. transaction_party: 거래상대를 원본 그대로. 편집하지 말 것`

const accountInferencePrompt = `당신은 한국의 회계 전문가입니다. 결제 건의 거래상대, 금액, 그리고 과거에 분류된 유사한 거래 이력을 보고
business_purpose(거래목적), main_category(계정과목 대분류), sub_category(계정과목 소분류)를 정하세요.
판단 근거를 reason에 짧게 적고, 확신 정도를 confidence에 0.0에서 1.0 사이로 적으세요.
유사한 거래 이력이 있으면 그 분류를 우선 참고하세요.`

const accountCorrectionPrompt = `당신은 한국의 회계 전문가입니다. 이전에 결제 건의 business_purpose, main_category, sub_category를 추론해서 알려줬고,
사용자가 채팅으로 더 적합한 분류를 알려준 상황입니다.
사용자의 채팅에서 business_purpose, main_category, sub_category를 추출하세요.
사용자가 말하지 않은 항목은 추측하지 말고 ""로 비워두세요.
사용자가 바꾸는 이유를 말했다면 reason에 적고 끝에 "라고 슬랙에서 말했음."을 붙이세요. 이유가 없다면 ""로 두세요.
confidence는 1.0으로 두세요.`
